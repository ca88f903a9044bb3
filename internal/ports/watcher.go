package ports

// Op is the kind of a file event.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	}
	return "unknown"
}

// FileEvent is one observed change. For OpRename, OldPath is the previous
// location and Path the new one. Dir is set when the paths name a directory;
// the event then applies to every file below it.
type FileEvent struct {
	Op      Op
	Path    string
	OldPath string
	Dir     bool
}

// Watcher monitors a workspace for changes to feature and binding files.
// The adapter (fsnotify) filters out ignored directories and unrelated files
// before invoking onEvent. Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring root recursively. onEvent may be invoked from
	// any goroutine; callers are expected to enqueue rather than act inline.
	// Returns an error if the directory doesn't exist or permissions are
	// insufficient.
	Watch(root string, onEvent func(FileEvent)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onEvent calls will fire. Safe to call multiple times.
	Stop() error
}
