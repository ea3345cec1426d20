package tracking

import (
	"runtime"
	"strings"
)

// Stack is what a resolver reports about one call.
type Stack struct {
	// Caller is the first frame outside the dispatch machinery.
	Caller CallerInfo
	// Packages holds the package path of every frame above the dispatch
	// machinery, innermost first. Ignore matching runs over all of them.
	Packages []string
}

// CallerResolver inspects the current goroutine's stack.
// Implementations must never fail; unknown details stay empty.
type CallerResolver interface {
	Resolve() Stack
}

const maxDepth = 64

// RuntimeResolver walks runtime frames, skipping frames whose package is in Internal.
// Frames from Transparent packages are listed in Stack.Packages but are never
// reported as the caller, so a read through io.ReadFull is attributed to
// whoever called io.ReadFull.
type RuntimeResolver struct {
	Internal    []string
	Transparent []string
}

// DefaultTransparent are stdlib plumbing packages between a consumer and an io.Reader.
var DefaultTransparent = []string{"io", "bufio"}

// NewRuntimeResolver returns a resolver that treats the listed packages as dispatch machinery.
func NewRuntimeResolver(internal ...string) *RuntimeResolver {
	return &RuntimeResolver{
		Internal:    append([]string(nil), internal...),
		Transparent: append([]string(nil), DefaultTransparent...),
	}
}

func (r *RuntimeResolver) Resolve() Stack {
	pcs := make([]uintptr, maxDepth)
	// 2 skips runtime.Callers and Resolve itself.
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return Stack{}
	}

	var st Stack
	found := false
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			pkg, qualified, fn := SplitFunction(frame.Function)
			if !contains(r.Internal, pkg) {
				st.Packages = append(st.Packages, pkg)
				if !found && !contains(r.Transparent, pkg) {
					found = true
					st.Caller = CallerInfo{
						Module:        pkg,
						File:          frame.File,
						Line:          frame.Line,
						Function:      fn,
						QualifiedName: qualified,
					}
				}
			}
		}
		if !more {
			break
		}
	}
	return st
}

func contains(list []string, pkg string) bool {
	for _, p := range list {
		if pkg == p {
			return true
		}
	}
	return false
}

// SplitFunction breaks a runtime function name such as
// "example.com/svc/store.(*Store).Save.func1" into its package path
// ("example.com/svc/store"), qualified name ("(*Store).Save.func1") and
// simple name ("func1").
func SplitFunction(name string) (pkg, qualified, fn string) {
	if name == "" {
		return "", "", ""
	}
	lastSlash := strings.LastIndex(name, "/")
	dot := strings.Index(name[lastSlash+1:], ".")
	if dot < 0 {
		return name, "", ""
	}
	dot += lastSlash + 1
	pkg = name[:dot]
	qualified = name[dot+1:]
	// Generic instantiations are reported as Name[...].
	qualified = strings.ReplaceAll(qualified, "[...]", "")
	fn = qualified
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		fn = qualified[i+1:]
	}
	return pkg, qualified, fn
}
