// Package integration exercises the full farm lifecycle: deployment scripts,
// staking from several accounts, reward issuance, state persistence and the
// HTTP gateway reading the resulting chain.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tokenfarm/chain"
	"tokenfarm/contracts"
	"tokenfarm/internal/gateway"
	"tokenfarm/scripts"
	"tokenfarm/shared"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

type farmEnv struct {
	session *scripts.Session
	farm    *contracts.TokenFarm
	dapp    *contracts.ERC20
	weth    *contracts.ERC20
	owner   *chain.Account
	alice   *chain.Account
}

func newSession(t *testing.T) *scripts.Session {
	t.Helper()
	s, err := scripts.NewSession(shared.DefaultConfig(), shared.NetworkDevelopment, zap.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

// setupFarm deploys the farm and stakes from two accounts:
// owner stakes 5 DAPP, alice stakes 10 DAPP and 1 WETH.
func setupFarm(t *testing.T) *farmEnv {
	t.Helper()
	s := newSession(t)

	farm, dapp, err := scripts.DeployTokenFarmAndDappToken(s, t.TempDir())
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}
	owner, err := scripts.GetAccount(s)
	if err != nil {
		t.Fatal(err)
	}
	alice, err := scripts.GetAccount(s, scripts.WithIndex(1))
	if err != nil {
		t.Fatal(err)
	}
	wethAddr, err := scripts.ResolveToken(s, scripts.WethToken)
	if err != nil {
		t.Fatal(err)
	}
	weth, err := contracts.ERC20At(s.Chain, wethAddr)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := dapp.Transfer(owner.Opts(), alice.Address, ether(10)); err != nil {
		t.Fatalf("dapp transfer failed: %v", err)
	}
	if _, err := weth.Transfer(owner.Opts(), alice.Address, ether(1)); err != nil {
		t.Fatalf("weth transfer failed: %v", err)
	}

	stakes := []struct {
		account *chain.Account
		token   common.Address
		amount  *big.Int
	}{
		{owner, dapp.Address(), ether(5)},
		{alice, dapp.Address(), ether(10)},
		{alice, weth.Address(), ether(1)},
	}
	for _, st := range stakes {
		if _, err := scripts.StakeTokens(s, st.account, st.token, st.amount); err != nil {
			t.Fatalf("stake from %s failed: %v", st.account.Address.Hex(), err)
		}
	}

	return &farmEnv{session: s, farm: farm, dapp: dapp, weth: weth, owner: owner, alice: alice}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s failed: %v", url, err)
		}
	}
	return resp.StatusCode
}

func newGateway(t *testing.T, s *scripts.Session) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reg := prometheus.NewRegistry()
	ts := httptest.NewServer(gateway.New(ctx, s, reg, reg).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// =============================================================================
// Staking and Reward Lifecycle
// =============================================================================

func TestStakeAndIssueLifecycle(t *testing.T) {
	env := setupFarm(t)

	stakers, err := env.farm.StakerList()
	if err != nil {
		t.Fatal(err)
	}
	if len(stakers) != 2 {
		t.Fatalf("stakers = %d, want 2 (alice staked twice)", len(stakers))
	}

	// Every mock feed reports 2000 USD with 18 decimals
	tests := []struct {
		name    string
		account *chain.Account
		want    *big.Int
	}{
		{"owner", env.owner, ether(10000)},
		{"alice", env.alice, ether(22000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := env.farm.GetUserTotalValue(tt.account.Address)
			if err != nil {
				t.Fatal(err)
			}
			if total.Cmp(tt.want) != 0 {
				t.Errorf("total value = %s, want %s", total, tt.want)
			}
		})
	}

	receipt, err := scripts.IssueTokens(env.session)
	if err != nil {
		t.Fatalf("IssueTokens failed: %v", err)
	}
	if n := len(receipt.Events("Transfer")); n != 2 {
		t.Errorf("reward transfers = %d, want 2", n)
	}

	balances := []struct {
		account *chain.Account
		want    *big.Int
	}{
		// 100 kept - 10 sent - 5 staked + 10000 reward
		{env.owner, ether(10085)},
		{env.alice, ether(22000)},
	}
	for _, b := range balances {
		got, err := env.dapp.BalanceOf(b.account.Address)
		if err != nil {
			t.Fatal(err)
		}
		if got.Cmp(b.want) != 0 {
			t.Errorf("dapp balance of %s = %s, want %s", b.account.Address.Hex(), got, b.want)
		}
	}

	if _, err := scripts.UnstakeTokens(env.session, env.alice, env.weth.Address()); err != nil {
		t.Fatalf("unstake weth failed: %v", err)
	}
	unique, err := env.farm.UniqueTokensStaked(env.alice.Address)
	if err != nil {
		t.Fatal(err)
	}
	if unique.Uint64() != 1 {
		t.Errorf("unique tokens staked = %s, want 1", unique)
	}
	if _, err := scripts.UnstakeTokens(env.session, env.alice, env.dapp.Address()); err != nil {
		t.Fatalf("unstake dapp failed: %v", err)
	}
	stakers, _ = env.farm.StakerList()
	if len(stakers) != 1 || stakers[0] != env.owner.Address {
		t.Errorf("stakers after alice left = %v", stakers)
	}

	_, err = scripts.UnstakeTokens(env.session, env.alice, env.dapp.Address())
	if !errors.Is(err, chain.ErrVMError) {
		t.Errorf("second unstake error = %v, want VM error", err)
	}
}

// =============================================================================
// State Persistence
// =============================================================================

func TestStateSurvivesRestart(t *testing.T) {
	env := setupFarm(t)
	path := filepath.Join(t.TempDir(), shared.DefaultStateFile)

	if err := env.session.SaveState(path); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	restarted := newSession(t)
	loaded, err := restarted.LoadState(path)
	if err != nil || !loaded {
		t.Fatalf("LoadState = %v, %v", loaded, err)
	}
	if restarted.Chain.BlockNumber() != env.session.Chain.BlockNumber() {
		t.Errorf("block = %d, want %d", restarted.Chain.BlockNumber(), env.session.Chain.BlockNumber())
	}

	farm, err := contracts.LatestTokenFarm(restarted.Chain)
	if err != nil {
		t.Fatal(err)
	}
	if farm.Address() != env.farm.Address() {
		t.Errorf("farm address = %s, want %s", farm.Address().Hex(), env.farm.Address().Hex())
	}
	total, err := farm.GetUserTotalValue(env.alice.Address)
	if err != nil {
		t.Fatal(err)
	}
	if total.Cmp(ether(22000)) != 0 {
		t.Errorf("restored total value = %s", total)
	}

	// Nonces survive, so the restarted chain keeps accepting transactions
	if _, err := scripts.IssueTokens(restarted); err != nil {
		t.Fatalf("IssueTokens after restart failed: %v", err)
	}
}

// =============================================================================
// Gateway over a live farm
// =============================================================================

func TestGatewayReflectsChain(t *testing.T) {
	env := setupFarm(t)
	ts := newGateway(t, env.session)

	var farm gateway.FarmResponse
	if code := getJSON(t, ts.URL+"/api/farm", &farm); code != http.StatusOK {
		t.Fatalf("/api/farm status = %d", code)
	}
	if farm.Address != env.farm.Address().Hex() {
		t.Errorf("farm address = %s", farm.Address)
	}
	if len(farm.Stakers) != 2 {
		t.Errorf("stakers = %v", farm.Stakers)
	}

	var staker gateway.StakerResponse
	url := ts.URL + "/api/stakers/" + env.alice.Address.Hex()
	if code := getJSON(t, url, &staker); code != http.StatusOK {
		t.Fatalf("staker status = %d", code)
	}
	if staker.TotalValue.Ether != "22000" || staker.UniqueTokensStaked != 2 {
		t.Errorf("staker = %+v", staker)
	}

	// The cache is keyed by block, so a new transaction is visible immediately
	if _, err := scripts.UnstakeTokens(env.session, env.alice, env.weth.Address()); err != nil {
		t.Fatal(err)
	}
	if code := getJSON(t, url, &staker); code != http.StatusOK {
		t.Fatalf("staker status = %d", code)
	}
	if staker.TotalValue.Ether != "20000" || staker.UniqueTokensStaked != 1 {
		t.Errorf("staker after unstake = %+v", staker)
	}
}

func TestGatewayConcurrentReads(t *testing.T) {
	env := setupFarm(t)
	ts := newGateway(t, env.session)

	paths := []string{
		"/api/farm",
		"/api/stakers/" + env.owner.Address.Hex(),
		"/api/stakers/" + env.alice.Address.Hex(),
		"/api/tokens/" + env.dapp.Address().Hex() + "/value",
		"/health",
	}

	var wg sync.WaitGroup
	errs := make(chan string, len(paths)*10)
	for i := 0; i < 10; i++ {
		for _, p := range paths {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				resp, err := http.Get(ts.URL + p)
				if err != nil {
					errs <- err.Error()
					return
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errs <- p + ": " + resp.Status
				}
			}(p)
		}
	}

	// Writes interleave with the reads above
	if _, err := scripts.IssueTokens(env.session); err != nil {
		t.Errorf("IssueTokens failed: %v", err)
	}

	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
