package inject

// Config is the user-facing configuration of a container, suitable for
// embedding in a kong CLI.
type Config struct {
	Overlay       string `help:"Strategy for local definitions (snapshot, shared)." enum:"snapshot,shared" default:"snapshot"`
	StrictLocking bool   `help:"Hold the shared overlay lock for the whole of a local resolution." default:"true" negatable:""`
}
