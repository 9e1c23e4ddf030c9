package platform

import (
	"context"

	"github.com/prieelo/prieelo/visibility"
)

type (
	ctxViewer struct{}
)

func withViewer(ctx context.Context, v visibility.Viewer) context.Context {
	return context.WithValue(ctx, ctxViewer{}, v)
}

func getViewer(ctx context.Context) visibility.Viewer {
	v, ok := ctx.Value(ctxViewer{}).(visibility.Viewer)
	if !ok {
		return visibility.Anonymous()
	}
	return v
}
