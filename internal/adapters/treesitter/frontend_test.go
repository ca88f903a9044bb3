//go:build !lean

package treesitter

import (
	"strings"
	"testing"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stepsSource = `using TechTalk.SpecFlow;

namespace Shop.Specs
{
    [Binding]
    public class CartSteps
    {
        [Given(@"I have (\d+) items")]
        public void GivenItems(int n) { }

        [When("I pay")]
        [TechTalk.SpecFlow.Then(Regex = "I see a receipt")]
        public void Pay() { }

        [Given]
        public void I_am_logged_in() { }

        public void Helper() { }

        [return: NotNull]
        public string NoAttributes() { return ""; }
    }

    public class NotBinding
    {
        [Given("ignored")]
        public void Ignored() { }
    }
}
`

const attributeSource = `namespace Shop.Specs;

public class VerifyAttribute : CheckAttribute
{
    public VerifyAttribute(string pattern) : base(pattern) { }
}

public class CheckAttribute : TechTalk.SpecFlow.StepDefinitionBaseAttribute { }

public class Plain : System.Object { }
`

func extract(t *testing.T, fe *FrontEnd, src string) *ports.FileSymbols {
	t.Helper()
	tree, err := fe.Parse([]byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	syms, err := fe.Extract(tree)
	require.NoError(t, err)
	return syms
}

func methodNamed(syms *ports.FileSymbols, name string) *ports.AnnotatedMethod {
	for i := range syms.Methods {
		if syms.Methods[i].Name == name {
			return &syms.Methods[i]
		}
	}
	return nil
}

func TestFrontEnd_Available(t *testing.T) {
	assert.True(t, NewFrontEnd().Available())
}

func TestExtract_BindingClass(t *testing.T) {
	syms := extract(t, NewFrontEnd(), stepsSource)

	assert.Equal(t, []string{"CartSteps"}, syms.BindingClasses)
	assert.Empty(t, syms.AttributeClasses)
	require.Len(t, syms.Methods, 3, "only attributed methods of [Binding] classes")

	given := methodNamed(syms, "GivenItems")
	require.NotNil(t, given)
	assert.Equal(t, "CartSteps", given.Class)
	require.Len(t, given.Attributes, 1)
	a := given.Attributes[0]
	assert.Equal(t, "Given", a.Name)
	assert.Equal(t, []ports.AttributeArg{{Value: `I have (\d+) items`, IsString: true}}, a.Args)
	assert.Equal(t, ports.Span{StartLine: 7, StartCol: 9, EndLine: 7, EndCol: 37}, a.Range)
	assert.Equal(t, 7, given.Range.StartLine)
	assert.Equal(t, 8, given.Range.EndLine)

	pay := methodNamed(syms, "Pay")
	require.NotNil(t, pay)
	require.Len(t, pay.Attributes, 2)
	assert.Equal(t, "When", pay.Attributes[0].Name)
	assert.Equal(t, "Then", pay.Attributes[1].Name)
	assert.Equal(t, []ports.AttributeArg{{Name: "Regex", Value: "I see a receipt", IsString: true}}, pay.Attributes[1].Args)

	bare := methodNamed(syms, "I_am_logged_in")
	require.NotNil(t, bare)
	assert.Empty(t, bare.Attributes[0].Args)

	assert.Nil(t, methodNamed(syms, "Ignored"))
	assert.Nil(t, methodNamed(syms, "NoAttributes"))
}

func TestExtract_AttributeClasses(t *testing.T) {
	syms := extract(t, NewFrontEnd(), attributeSource)

	assert.Empty(t, syms.BindingClasses)
	require.Len(t, syms.AttributeClasses, 2)
	assert.Equal(t, ports.ClassDecl{Name: "VerifyAttribute", Bases: []string{"CheckAttribute"}}, syms.AttributeClasses[0])
	assert.Equal(t, ports.ClassDecl{Name: "CheckAttribute", Bases: []string{"TechTalk.SpecFlow.StepDefinitionBaseAttribute"}}, syms.AttributeClasses[1])
}

func TestExtract_PlainFile(t *testing.T) {
	syms := extract(t, NewFrontEnd(), "class A { void M() {} }")
	assert.Empty(t, syms.BindingClasses)
	assert.Empty(t, syms.AttributeClasses)
	assert.Empty(t, syms.Methods)
}

func TestParse_Incremental(t *testing.T) {
	fe := NewFrontEnd()
	first, err := fe.Parse([]byte(stepsSource), nil)
	require.NoError(t, err)
	defer first.Close()

	edited := []byte(strings.Replace(stepsSource, `[When("I pay")]`, `[When("I pay by card")]`, 1))
	second, err := fe.Parse(edited, first)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, []byte(stepsSource), first.Source(), "previous tree is untouched")

	syms, err := fe.Extract(second)
	require.NoError(t, err)
	pay := methodNamed(syms, "Pay")
	require.NotNil(t, pay)
	assert.Equal(t, "I pay by card", pay.Attributes[0].Args[0].Value)

	again, err := fe.Extract(first)
	require.NoError(t, err)
	assert.Equal(t, "I pay", methodNamed(again, "Pay").Attributes[0].Args[0].Value)
}

func TestExtract_ForeignTree(t *testing.T) {
	_, err := NewFrontEnd().Extract(nil)
	assert.Error(t, err)
}

func TestTree_CloseTwice(t *testing.T) {
	tree, err := NewFrontEnd().Parse([]byte("class A {}"), nil)
	require.NoError(t, err)
	tree.Close()
	tree.Close()
}
