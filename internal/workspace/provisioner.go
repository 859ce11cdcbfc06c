// AngelaMos | 2026
// provisioner.go

package workspace

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/atelierline/portal/internal/config"
)

// ProjectPage is the project summary mirrored into the studio workspace.
type ProjectPage struct {
	ProjectID      string
	Name           string
	ClientEmail    string
	ProjectAddress string
	AccessCode     string
	Tier           int
	AmountMinor    int64
	Currency       string
}

type Provisioner interface {
	CreateProjectPage(ctx context.Context, page ProjectPage) error
}

// NewProvisioner returns a Notion-backed provisioner, or Noop when the
// integration is not configured.
func NewProvisioner(cfg config.NotionConfig) Provisioner {
	if !cfg.Enabled() {
		return Noop{}
	}
	return NewNotionProvisioner(NewClient(cfg.Token, cfg.RateLimit), cfg.ProjectsDatabaseID)
}

type Noop struct{}

func (Noop) CreateProjectPage(context.Context, ProjectPage) error { return nil }

type NotionProvisioner struct {
	client     Client
	databaseID string
}

func NewNotionProvisioner(client Client, databaseID string) *NotionProvisioner {
	return &NotionProvisioner{
		client:     client,
		databaseID: databaseID,
	}
}

func (p *NotionProvisioner) CreateProjectPage(ctx context.Context, page ProjectPage) error {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(p.databaseID),
		},
		Properties: projectProperties(page),
	}

	if _, err := p.client.CreatePage(ctx, req); err != nil {
		return fmt.Errorf("create project page %s: %w", page.ProjectID, err)
	}
	return nil
}

func projectProperties(page ProjectPage) notionapi.Properties {
	return notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(page.Name),
		},
		"Client": notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: page.ClientEmail,
		},
		"Address": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(page.ProjectAddress),
		},
		"Access Code": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(page.AccessCode),
		},
		"Project ID": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(page.ProjectID),
		},
		"Tier": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: fmt.Sprintf("Tier %d", page.Tier)},
		},
		"Amount": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(page.AmountMinor) / 100,
		},
		"Currency": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(page.Currency),
		},
		"Status": notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: "Onboarding"},
		},
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
