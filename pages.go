package auth

import (
	"bytes"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
)

const (
	ViewConfirmedEmail        = "confirmed_email"
	ViewEmailAlreadyConfirmed = "email_already_confirmed"
	ViewCheckForConfirmation  = "check_for_confirmation"
)

// Pages renders the HTML answers of the e-mail verification routes
type Pages struct {
	views *django.Engine
}

// NewPages loads the embedded views
func NewPages() (*Pages, error) {
	sub, err := fs.Sub(viewsFS, "data/views")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "views not found")
	}

	views := django.NewFileSystem(http.FS(sub), ".html")
	if err := views.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load views")
	}

	return &Pages{views: views}, nil
}

func (p *Pages) Render(name string, data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.views.Render(&buf, name, data); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to render view").
			WithMetadata(map[string]any{"view": name})
	}
	return buf.Bytes(), nil
}
