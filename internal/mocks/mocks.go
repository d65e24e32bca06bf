// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

// -- LLM Client Mock --

// MockLLMClient mocks schemas.LLMClient.
type MockLLMClient struct {
	mock.Mock
}

var _ schemas.LLMClient = (*MockLLMClient)(nil)

func (m *MockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Name() string {
	args := m.Called()
	return args.String(0)
}

// -- Page Mock --

// MockPage mocks schemas.Page.
type MockPage struct {
	mock.Mock
}

var _ schemas.Page = (*MockPage)(nil)

func (m *MockPage) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockPage) Click(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) Type(ctx context.Context, selector, text string) error {
	args := m.Called(ctx, selector, text)
	return args.Error(0)
}

func (m *MockPage) WaitVisible(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) Sleep(ctx context.Context, millis int) error {
	args := m.Called(ctx, millis)
	return args.Error(0)
}

func (m *MockPage) ExtractText(ctx context.Context, selector string) (string, error) {
	args := m.Called(ctx, selector)
	return args.String(0), args.Error(1)
}

func (m *MockPage) ExtractAttribute(ctx context.Context, selector, attribute string) (string, error) {
	args := m.Called(ctx, selector, attribute)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Summarize(ctx context.Context) (schemas.PageSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.PageSummary), args.Error(1)
}

func (m *MockPage) HighlightElements(ctx context.Context, elements []schemas.Element) error {
	args := m.Called(ctx, elements)
	return args.Error(0)
}

func (m *MockPage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- Browser Manager Mock --

// MockBrowserManager mocks schemas.BrowserManager.
type MockBrowserManager struct {
	mock.Mock
}

var _ schemas.BrowserManager = (*MockBrowserManager)(nil)

func (m *MockBrowserManager) NewPage(ctx context.Context, sessionID string) (schemas.Page, error) {
	args := m.Called(ctx, sessionID)
	if page := args.Get(0); page != nil {
		return page.(schemas.Page), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBrowserManager) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Session Service Mock --

// MockSessionService mocks schemas.SessionService.
type MockSessionService struct {
	mock.Mock
}

var _ schemas.SessionService = (*MockSessionService)(nil)

func (m *MockSessionService) Start(ctx context.Context, req schemas.StartSessionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockSessionService) Status(sessionID string) (schemas.SessionStatusResponse, error) {
	args := m.Called(sessionID)
	return args.Get(0).(schemas.SessionStatusResponse), args.Error(1)
}

func (m *MockSessionService) Cancel(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}
