package listview

import "context"

// Controller is the entry point HTTP handlers and routes use to render list
// views.
type Controller struct {
	service *Service
}

// NewController wires the service into a controller.
func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// Render resolves the view for a viewer and request.
func (c *Controller) Render(ctx context.Context, viewer ViewerContext, req ListRequest) (View, error) {
	if c.service == nil {
		return View{}, nil
	}
	return c.service.List(ctx, viewer, req)
}

// RemoveChip clears a chip and re-renders with the resulting request.
func (c *Controller) RemoveChip(ctx context.Context, viewer ViewerContext, req ListRequest, chip Chip) (View, ListRequest, error) {
	if c.service == nil {
		return View{}, req, nil
	}
	next := c.service.RemoveChip(req, chip)
	view, err := c.service.List(ctx, viewer, next)
	return view, next, err
}

// Download exports the viewer's selection, or every matching row.
func (c *Controller) Download(ctx context.Context, viewer ViewerContext, req ExportRequestOptions) (ExportResult, error) {
	if c.service == nil {
		return ExportResult{}, nil
	}
	return c.service.Export(ctx, viewer, req)
}
