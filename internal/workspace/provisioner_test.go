// AngelaMos | 2026
// provisioner_test.go

package workspace

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atelierline/portal/internal/config"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

var page = ProjectPage{
	ProjectID:      "3a3c7d1e-0000-4000-8000-000000000001",
	Name:           "12 Harbour Road",
	ClientEmail:    "dana@example.com",
	ProjectAddress: "12 Harbour Road",
	AccessCode:     "AB12CD34",
	Tier:           2,
	AmountMinor:    450000,
	Currency:       "usd",
}

func TestNewProvisionerDisabled(t *testing.T) {
	assert.IsType(t, Noop{}, NewProvisioner(config.NotionConfig{}))
	assert.IsType(t, Noop{}, NewProvisioner(config.NotionConfig{Token: "secret"}))
	assert.NoError(t, Noop{}.CreateProjectPage(context.Background(), page))
}

func TestNewProvisionerEnabled(t *testing.T) {
	p := NewProvisioner(config.NotionConfig{
		Token:              "secret",
		ProjectsDatabaseID: "db-1",
	})
	assert.IsType(t, &NotionProvisioner{}, p)
}

func TestCreateProjectPage(t *testing.T) {
	mc := new(MockClient)
	p := NewNotionProvisioner(mc, "db-projects")

	var captured *notionapi.PageCreateRequest
	mc.On("CreatePage", mock.Anything, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*notionapi.PageCreateRequest)
		}).
		Return(&notionapi.Page{ID: "page-1"}, nil)

	require.NoError(t, p.CreateProjectPage(context.Background(), page))
	mc.AssertExpectations(t)

	require.NotNil(t, captured)
	assert.Equal(t, notionapi.DatabaseID("db-projects"), captured.Parent.DatabaseID)

	title, ok := captured.Properties["Name"].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "12 Harbour Road", title.Title[0].Text.Content)

	tier, ok := captured.Properties["Tier"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "Tier 2", tier.Select.Name)

	amount, ok := captured.Properties["Amount"].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.InDelta(t, 4500.0, amount.Number, 0.001)
}

func TestCreateProjectPageError(t *testing.T) {
	mc := new(MockClient)
	p := NewNotionProvisioner(mc, "db-projects")

	mc.On("CreatePage", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	err := p.CreateProjectPage(context.Background(), page)

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), page.ProjectID)
}
