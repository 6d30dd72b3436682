package cmpfetch

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// WithMarker wraps a component's rendered output in a root element
// carrying the fetch-key marker. Server render glue applies it to every
// instance that went through ServerFetch, so the client can correlate the
// instance with its payload slot:
//
//	key, ok := rt.ServerFetch(ctx, inst)
//	if ok {
//	    content = cmpfetch.WithMarker(key, content)
//	}
func WithMarker(key int, inner templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div %s="%d">`, MarkerAttr, key); err != nil {
			return err
		}
		if inner != nil {
			if err := inner.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// AttrNode is a Node backed by a plain attribute map. Host glue that
// already parsed the rendered root element can hand its attributes over
// directly.
type AttrNode map[string]string

func (n AttrNode) Attr(name string) (string, bool) {
	v, ok := n[name]
	return v, ok
}

// MarkedNode returns a Node carrying only the fetch-key marker.
func MarkedNode(key int) Node {
	return AttrNode{MarkerAttr: strconv.Itoa(key)}
}
