package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Klingon-tech/zwalletd/internal/accounts"
	"github.com/Klingon-tech/zwalletd/internal/chainsync"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

var (
	_ accounts.Observer  = (*Metrics)(nil)
	_ chainsync.Observer = (*Metrics)(nil)
)

func TestAccountsAndAddresses(t *testing.T) {
	m := New()
	m.SetAccounts(2)
	m.AccountCreated(2)
	m.AddressIssued(0, types.FamilyUnified)
	m.AddressIssued(0, types.FamilyUnified)
	m.AddressIssued(1, types.FamilySapling)

	if got := testutil.ToFloat64(m.accounts); got != 3 {
		t.Errorf("accounts = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.addressesIssued.WithLabelValues("unified")); got != 2 {
		t.Errorf("unified addresses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.addressesIssued.WithLabelValues("sapling")); got != 1 {
		t.Errorf("sapling addresses = %v, want 1", got)
	}
}

func TestSyncGauges(t *testing.T) {
	m := New()
	m.SyncObserved(&chainsync.Snapshot{Height: 90, TargetHeight: 100})
	if testutil.ToFloat64(m.nodeHeight) != 90 || testutil.ToFloat64(m.targetHeight) != 100 {
		t.Error("height gauges not set")
	}
	if testutil.ToFloat64(m.synced) != 0 {
		t.Error("synced = 1 while behind")
	}
	m.SyncObserved(&chainsync.Snapshot{Height: 100, TargetHeight: 100, Synced: true})
	if testutil.ToFloat64(m.synced) != 1 {
		t.Error("synced = 0 at target")
	}
	m.SyncFailed()
	if testutil.ToFloat64(m.nodeFailures) != 1 {
		t.Error("node failures not counted")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("create_address", true)
	m.ObserveRequest("create_address", false)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`zwalletd_rpc_requests_total{method="create_address",outcome="ok"} 1`,
		`zwalletd_rpc_requests_total{method="create_address",outcome="error"} 1`,
		"zwalletd_sync_height",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
