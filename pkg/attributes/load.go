package attributes

// LoadOptions selects the layers assembled by Load
type LoadOptions struct {
	Files     []string
	Overrides []string
	// Detect fills memory.total and cloud.private_ips from the host
	Detect bool
}

// Load builds a finalized node from defaults, files, environment and overrides
func Load(opts LoadOptions) (*Node, error) {
	n := New()
	for _, file := range opts.Files {
		if err := n.LoadFile(file); err != nil {
			return nil, err
		}
	}
	if err := n.ApplyOverrides(opts.Overrides); err != nil {
		return nil, err
	}
	if opts.Detect {
		n.Detect()
	}
	if err := n.Finalize(); err != nil {
		return nil, err
	}
	return n, nil
}
