package renderer

import "context"

// Mock returns a fixed list of image paths, or Err if set.
type Mock struct {
	Paths []string
	Err   error
}

var _ Renderer = (*Mock)(nil)

func (m *Mock) Render(ctx context.Context, artifactPath string, opts Options) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Paths, nil
}
