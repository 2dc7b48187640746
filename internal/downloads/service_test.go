package downloads

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/boostcv/backend/pkg/asaas"
	"github.com/boostcv/backend/pkg/db/models"
	"github.com/boostcv/backend/pkg/enums"
)

type stubRepo struct {
	records    map[string]*models.PaymentDownload
	findErr    error
	createErr  error
	increments []string
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: map[string]*models.PaymentDownload{}}
}

func (r *stubRepo) WithTx(*gorm.DB) Repository { return r }

func (r *stubRepo) Find(_ context.Context, id string) (*models.PaymentDownload, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	record, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *stubRepo) Create(_ context.Context, record *models.PaymentDownload) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.records[record.ID] = record
	return nil
}

func (r *stubRepo) TryIncrement(_ context.Context, id string) (bool, error) {
	record, ok := r.records[id]
	if !ok || record.DownloadCount >= record.MaxDownloads {
		return false, nil
	}
	record.DownloadCount++
	r.increments = append(r.increments, id)
	return true, nil
}

type stubStatusGetter struct {
	status *asaas.PaymentStatus
	err    error
	calls  int
}

func (g *stubStatusGetter) GetPaymentStatus(context.Context, string) (*asaas.PaymentStatus, error) {
	g.calls++
	return g.status, g.err
}

func confirmedStatus(id string) *asaas.PaymentStatus {
	return &asaas.PaymentStatus{ID: id, Status: enums.GatewayPaymentStatusConfirmed, Confirmed: true}
}

func newTestService(t *testing.T, repo Repository, gateway StatusGetter) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Gateway: gateway})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAuthorizeEmptyTokenIsDenied(t *testing.T) {
	svc := newTestService(t, newStubRepo(), &stubStatusGetter{})

	decision, err := svc.Authorize(context.Background(), ParseToken("   "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Authorized || !decision.Watermarked {
		t.Fatalf("empty token must be denied and watermarked: %+v", decision)
	}
}

func TestAuthorizeConfirmedGatewayFirstDownload(t *testing.T) {
	repo := newStubRepo()
	gateway := &stubStatusGetter{status: confirmedStatus("pay_1")}
	svc := newTestService(t, repo, gateway)

	decision, err := svc.Authorize(context.Background(), ParseToken("pay_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Authorized || decision.Watermarked {
		t.Fatalf("confirmed first download should be clean: %+v", decision)
	}

	record := repo.records["pay_1"]
	if record == nil || record.DownloadCount != 1 || record.MaxDownloads != 1 {
		t.Fatalf("first grant should persist a consumed record, got %+v", record)
	}
}

func TestAuthorizeUnconfirmedPaymentIsDenied(t *testing.T) {
	repo := newStubRepo()
	gateway := &stubStatusGetter{
		status: &asaas.PaymentStatus{ID: "pay_1", Status: enums.GatewayPaymentStatusPending},
	}
	svc := newTestService(t, repo, gateway)

	decision, err := svc.Authorize(context.Background(), ParseToken("pay_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Authorized || !decision.Watermarked {
		t.Fatalf("unconfirmed payment must be denied: %+v", decision)
	}
	if !strings.Contains(decision.Reason, "PENDING") {
		t.Fatalf("denial should carry the gateway status, got %q", decision.Reason)
	}
	if len(repo.records) != 0 {
		t.Fatalf("unconfirmed payment must not write ledger rows")
	}
}

func TestAuthorizeGatewayErrorFailsClosed(t *testing.T) {
	svc := newTestService(t, newStubRepo(), &stubStatusGetter{err: errors.New("gateway down")})

	decision, err := svc.Authorize(context.Background(), ParseToken("pay_1"))
	if err == nil {
		t.Fatalf("expected gateway error to surface")
	}
	if decision.Authorized || !decision.Watermarked {
		t.Fatalf("gateway failure must deny and watermark: %+v", decision)
	}
}

func TestAuthorizeExhaustedRecordSkipsGateway(t *testing.T) {
	repo := newStubRepo()
	repo.records["pay_1"] = &models.PaymentDownload{ID: "pay_1", DownloadCount: 1, MaxDownloads: 1}
	gateway := &stubStatusGetter{status: confirmedStatus("pay_1")}
	svc := newTestService(t, repo, gateway)

	decision, err := svc.Authorize(context.Background(), ParseToken("pay_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Authorized || decision.Reason != "download limit reached" {
		t.Fatalf("exhausted record must be terminal: %+v", decision)
	}
	if gateway.calls != 0 {
		t.Fatalf("exhausted record must not hit the gateway")
	}
}

func TestAuthorizeExhaustionAfterSingleGrant(t *testing.T) {
	repo := newStubRepo()
	gateway := &stubStatusGetter{status: confirmedStatus("pay_1")}
	svc := newTestService(t, repo, gateway)

	first, err := svc.Authorize(context.Background(), ParseToken("pay_1"))
	if err != nil || !first.Authorized {
		t.Fatalf("first download should be granted: %+v %v", first, err)
	}

	for i := 0; i < 3; i++ {
		again, err := svc.Authorize(context.Background(), ParseToken("pay_1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.Authorized || !again.Watermarked {
			t.Fatalf("repeat download %d must be denied: %+v", i+1, again)
		}
	}
}

func TestAuthorizeLocalTokenRequiresMintedRow(t *testing.T) {
	repo := newStubRepo()
	gateway := &stubStatusGetter{}
	svc := newTestService(t, repo, gateway)

	decision, err := svc.Authorize(context.Background(), ParseToken("3f0c5b7e-df59-4fd3-9f1a-0c9a3c6d8e21"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Authorized || decision.Reason != "unknown download token" {
		t.Fatalf("forged local token must be denied: %+v", decision)
	}
	if gateway.calls != 0 {
		t.Fatalf("local tokens never consult the gateway")
	}
	if len(repo.records) != 0 {
		t.Fatalf("local tokens are never auto-created")
	}
}

func TestAuthorizeLocalTokenGrantsMintedRow(t *testing.T) {
	repo := newStubRepo()
	repo.records["token-1"] = &models.PaymentDownload{ID: "token-1", DownloadCount: 0, MaxDownloads: 1}
	svc := newTestService(t, repo, &stubStatusGetter{})

	decision, err := svc.Authorize(context.Background(), LocalToken("token-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Authorized || decision.Watermarked {
		t.Fatalf("minted token should grant a clean download: %+v", decision)
	}
}

func TestAuthorizeLosingInsertRaceIsDenied(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = errors.New(`duplicate key value violates unique constraint "payment_downloads_pkey"`)
	gateway := &stubStatusGetter{status: confirmedStatus("pay_1")}
	svc := newTestService(t, repo, gateway)

	decision, err := svc.Authorize(context.Background(), ParseToken("pay_1"))
	if err != nil {
		t.Fatalf("losing the insert race is a denial, not an error: %v", err)
	}
	if decision.Authorized || decision.Reason != "download limit reached" {
		t.Fatalf("race loser must be denied: %+v", decision)
	}
}
