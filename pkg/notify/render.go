package notify

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// view exposes an embedded template as a templ component.
func view(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return templates.ExecuteTemplate(w, name, data)
	})
}

// Render renders c into a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", errors.Join(ErrRender, err)
	}
	return sb.String(), nil
}
