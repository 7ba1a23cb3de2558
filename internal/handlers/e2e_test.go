package handlers

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/import-wizard/internal/auth"
	apiclient "github.com/kosarica/import-wizard/internal/http"
	"github.com/kosarica/import-wizard/internal/session"
	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/upload"
	"github.com/kosarica/import-wizard/internal/wizard"
)

const stockCSV = "Naziv;Rok trajanja;Količina;Cijena;Šifra\n" +
	"Jogurt;16.10.2026.;4;1,20;J-1\n" +
	"Mlijeko;19.10.2026.;2;0,89;M-1\n" +
	"Sir;30.11.2026.;1;10,00;S-1\n"

type wizardRun struct {
	sandbox *testSandbox
	gateway *auth.Gateway
	session *session.Session

	mu     sync.Mutex
	errors []error
}

func startWizard(t *testing.T) *wizardRun {
	t.Helper()
	sb := newTestSandbox(t, generousLimit())
	srv := httptest.NewServer(sb.router)
	t.Cleanup(srv.Close)

	refresher := auth.NewHTTPRefresher(srv.URL, 2*time.Second)
	tokens, err := refresher.Login(context.Background(), "ana", "tajna")
	require.NoError(t, err)

	gateway, err := auth.NewGateway(auth.NewFileStore(filepath.Join(t.TempDir(), "credentials.json")), refresher, nil)
	require.NoError(t, err)
	require.NoError(t, gateway.SetTokens(tokens))

	run := &wizardRun{sandbox: sb, gateway: gateway}
	client := apiclient.NewClient(apiclient.Options{BaseURL: srv.URL, Timeout: 2 * time.Second, Tokens: gateway})
	run.session = session.New(client, session.Options{
		Debounce: 20 * time.Millisecond,
		OnPreviewError: func(err error) {
			run.mu.Lock()
			defer run.mu.Unlock()
			run.errors = append(run.errors, err)
		},
	})
	t.Cleanup(run.session.Close)
	return run
}

func (r *wizardRun) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, r.session.WaitPreview(ctx))
}

func (r *wizardRun) previewErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...)
}

func TestWizardAgainstSandbox(t *testing.T) {
	run := startWizard(t)
	ctx := context.Background()

	file, err := upload.NewHandle("stock.csv", []byte(stockCSV))
	require.NoError(t, err)
	_, err = run.session.Upload(ctx, file)
	require.NoError(t, err)
	run.wait(t)

	state := run.session.Snapshot()
	assert.Empty(t, state.MissingFields())
	assert.Equal(t, "Šifra", state.ColumnMapping[types.FieldSKU])
	require.NotNil(t, state.Preview)
	assert.Equal(t, 3, state.Preview.TotalRows)
	assert.Equal(t, 2, state.Preview.Retained)
	assert.Equal(t, 2, state.Preview.DealCount)
	assert.Equal(t, "J-1", state.Preview.Items[0].ID)

	// The access token expires; the next preview refreshes once and replays.
	run.sandbox.clock.Advance(2 * time.Minute)
	rejected := run.gateway.CurrentToken()
	run.session.Dispatch(wizard.SetWindowDays{Days: 60})
	run.wait(t)

	assert.Empty(t, run.previewErrors())
	assert.NotEqual(t, rejected, run.gateway.CurrentToken())
	assert.Equal(t, 3, run.session.Snapshot().Preview.Retained)

	for i := 0; i < 3; i++ {
		run.session.Dispatch(wizard.NextStep{})
	}
	run.session.Dispatch(wizard.SetPublishMode{Mode: wizard.PublishModeDraft})
	result, err := run.session.Confirm(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ImportID)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, wizard.StatusSuccess, run.session.Snapshot().Status)

	w := run.sandbox.do(t, "GET", "/imports/"+result.ImportID, run.sandbox.token(t), nil)
	assert.Equal(t, "draft", decode(t, w)["status"])
}

func TestWizardRevokedSessionSurfacesUnauthorized(t *testing.T) {
	run := startWizard(t)
	file, err := upload.NewHandle("stock.csv", []byte(stockCSV))
	require.NoError(t, err)
	_, err = run.session.Upload(context.Background(), file)
	require.NoError(t, err)
	run.wait(t)
	before := run.session.Snapshot().Preview

	run.sandbox.clock.Advance(2 * time.Minute)
	run.sandbox.issuer.Revoke("ana")
	run.session.Dispatch(wizard.SetWindowDays{Days: 60})
	run.wait(t)

	errs := run.previewErrors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], apiclient.ErrUnauthorized)
	assert.Same(t, before, run.session.Snapshot().Preview)
}
