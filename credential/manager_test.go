package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infinitete/wechat-mp-sdk/retry"
	"github.com/infinitete/wechat-mp-sdk/wxerror"
)

// countingIssuer 按预置脚本依次返回结果，并记录调用次数。
type countingIssuer struct {
	mu      sync.Mutex
	calls   int
	script  []func() (IssuedCredential, error)
	gate    chan struct{} // 非 nil 时每次 Issue 先等待放行
	started chan struct{} // 非 nil 时每次 Issue 开始前发信号
}

func (i *countingIssuer) Issue(ctx context.Context) (IssuedCredential, error) {
	if i.started != nil {
		i.started <- struct{}{}
	}
	if i.gate != nil {
		<-i.gate
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	if len(i.script) == 0 {
		return IssuedCredential{Token: "default", ValidFor: 2 * time.Hour}, nil
	}
	step := i.script[0]
	if len(i.script) > 1 {
		i.script = i.script[1:]
	}
	return step()
}

func (i *countingIssuer) callCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

func issueOK(token string, validFor time.Duration) func() (IssuedCredential, error) {
	return func() (IssuedCredential, error) {
		return IssuedCredential{Token: token, ValidFor: validFor}, nil
	}
}

func issueErr(err error) func() (IssuedCredential, error) {
	return func() (IssuedCredential, error) {
		return IssuedCredential{}, err
	}
}

func fastPolicy(attempts int) ManagerOption {
	return WithRetryPolicy(retry.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond})
}

func setCred(m *Manager, cred Credential) {
	m.mu.Lock()
	c := cred
	m.cred = &c
	m.mu.Unlock()
}

func TestGetTokenEmptyFetches(t *testing.T) {
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueOK("T1", 7200 * time.Second),
	}}
	m := NewManager(issuer, fastPolicy(3))
	require.Equal(t, StateEmpty, m.State())

	before := time.Now()
	cred, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T1", cred.Token)
	require.Equal(t, 1, issuer.callCount())
	require.WithinDuration(t, before.Add(7200*time.Second), cred.ExpiresAt(), time.Minute)
	require.Equal(t, StateFresh, m.State())
}

func TestSingleFlight(t *testing.T) {
	issuer := &countingIssuer{
		script: []func() (IssuedCredential, error){issueOK("T1", 2 * time.Hour)},
		gate:   make(chan struct{}),
	}
	m := NewManager(issuer, fastPolicy(3))

	const n = 20
	tokens := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	var inFlight int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			atomic.AddInt32(&inFlight, 1)
			cred, err := m.GetToken(context.Background())
			tokens[i] = cred.Token
			errs[i] = err
		}(i)
	}

	// 等全部调用方起跑后再放行签发
	for atomic.LoadInt32(&inFlight) < n {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(issuer.gate)
	wg.Wait()

	require.Equal(t, 1, issuer.callCount(), "exactly one call must reach the issuer")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "T1", tokens[i], "all waiters observe the same credential")
	}
}

func TestFreshFastPathNoIO(t *testing.T) {
	issuer := &countingIssuer{}
	m := NewManager(issuer)
	setCred(m, Credential{Token: "cached", IssuedAt: time.Now(), ValidFor: 2 * time.Hour})

	for i := 0; i < 10; i++ {
		cred, err := m.GetToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, "cached", cred.Token)
	}
	require.Equal(t, 0, issuer.callCount(), "fresh credential must not trigger issuer calls")
}

func TestStaleReturnsImmediatelyAndRefreshesInBackground(t *testing.T) {
	issuer := &countingIssuer{
		script:  []func() (IssuedCredential, error){issueOK("T2", 2 * time.Hour)},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m := NewManager(issuer, fastPolicy(3))
	// 还有 2 分钟过期，已进入默认 5 分钟刷新缓冲
	setCred(m, Credential{Token: "T1", IssuedAt: time.Now().Add(-time.Hour), ValidFor: time.Hour + 2*time.Minute})
	require.Equal(t, StateStale, m.State())

	start := time.Now()
	cred, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T1", cred.Token, "stale credential is returned without waiting for the refresh")
	require.Less(t, time.Since(start), time.Second)

	// 后台刷新确实已启动
	select {
	case <-issuer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("proactive refresh was not triggered")
	}
	close(issuer.gate)

	require.Eventually(t, func() bool {
		cred, err := m.GetToken(context.Background())
		return err == nil && cred.Token == "T2"
	}, 2*time.Second, 10*time.Millisecond, "background refresh result must be adopted")
	require.Equal(t, 1, issuer.callCount())
}

func TestHardExpiryBlocksUntilRefresh(t *testing.T) {
	issuer := &countingIssuer{
		script: []func() (IssuedCredential, error){issueOK("T2", 2 * time.Hour)},
		gate:   make(chan struct{}),
	}
	m := NewManager(issuer, fastPolicy(3))
	setCred(m, Credential{Token: "expired", IssuedAt: time.Now().Add(-3 * time.Hour), ValidFor: 2 * time.Hour})
	require.Equal(t, StateEmpty, m.State())

	got := make(chan Credential, 1)
	go func() {
		cred, err := m.GetToken(context.Background())
		require.NoError(t, err)
		got <- cred
	}()

	select {
	case <-got:
		t.Fatal("expired credential must never be returned before the refresh resolves")
	case <-time.After(50 * time.Millisecond):
	}

	close(issuer.gate)
	select {
	case cred := <-got:
		require.Equal(t, "T2", cred.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("GetToken did not resolve after refresh completed")
	}
}

func TestFailOpenOnTransientExhaustion(t *testing.T) {
	busy := wxerror.NewAPIError(wxerror.CodeSystemBusy, "system busy")
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueErr(busy), issueErr(busy), issueErr(busy),
	}}
	m := NewManager(issuer, fastPolicy(3))
	// 仍有 2 分钟有效期的旧凭证
	setCred(m, Credential{Token: "old", IssuedAt: time.Now(), ValidFor: 2 * time.Minute})

	cred, err := m.GetToken(context.Background())
	require.NoError(t, err, "refresh failure with an unexpired credential must fail open")
	require.Equal(t, "old", cred.Token)
	require.Equal(t, 3, issuer.callCount(), "all retries must have been spent first")
}

func TestNoCredentialTransientExhaustionReturnsUnavailable(t *testing.T) {
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueErr(&wxerror.TransportError{Err: errors.New("connection refused")}),
	}}
	m := NewManager(issuer, fastPolicy(3))

	_, err := m.GetToken(context.Background())
	require.Error(t, err)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, 3, issuer.callCount())
}

func TestIssuerRejectionNotRetried(t *testing.T) {
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueErr(wxerror.NewAPIError(wxerror.CodeInvalidAppSecret, "invalid appsecret")),
	}}
	m := NewManager(issuer, fastPolicy(5))

	_, err := m.GetToken(context.Background())
	require.Error(t, err)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, wxerror.CodeInvalidAppSecret, wxerror.Code(err))
	require.Equal(t, 1, issuer.callCount(), "identity rejection must never be retried")
}

func TestInvalidateForcesRefresh(t *testing.T) {
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueOK("T2", 2 * time.Hour),
	}}
	m := NewManager(issuer, fastPolicy(3))
	setCred(m, Credential{Token: "T1", IssuedAt: time.Now(), ValidFor: 2 * time.Hour})

	m.Invalidate()
	require.Equal(t, StateInvalidated, m.State())

	cred, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T2", cred.Token)
	require.Equal(t, 1, issuer.callCount(), "invalidate must force an upstream call despite an unexpired credential")
	require.Equal(t, StateFresh, m.State())
}

func TestInvalidatedCredentialNotServedByFailOpen(t *testing.T) {
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueErr(&wxerror.TransportError{Err: errors.New("down")}),
	}}
	m := NewManager(issuer, fastPolicy(2))
	setCred(m, Credential{Token: "compromised", IssuedAt: time.Now(), ValidFor: 2 * time.Hour})

	m.Invalidate()
	_, err := m.GetToken(context.Background())
	require.Error(t, err, "a revoked credential must not come back through fail-open")
}

func TestRetryScenarioBusyBusySuccess(t *testing.T) {
	busy := wxerror.NewAPIError(wxerror.CodeSystemBusy, "system busy")
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueErr(busy),
		issueErr(busy),
		issueOK("T1", 7200 * time.Second),
	}}
	m := NewManager(issuer, WithRetryPolicy(retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}))

	before := time.Now()
	cred, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T1", cred.Token)
	require.Equal(t, 3, issuer.callCount(), "two transient failures then success means three attempts total")
	require.WithinDuration(t, before.Add(7200*time.Second), cred.ExpiresAt(), time.Minute)
}

func TestWaiterCancellationDoesNotAbortSharedRefresh(t *testing.T) {
	issuer := &countingIssuer{
		script: []func() (IssuedCredential, error){issueOK("T1", 2 * time.Hour)},
		gate:   make(chan struct{}),
	}
	m := NewManager(issuer, fastPolicy(3))

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := m.GetToken(cancelCtx)
		cancelled <- err
	}()

	patient := make(chan Credential, 1)
	go func() {
		cred, err := m.GetToken(context.Background())
		require.NoError(t, err)
		patient <- cred
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-cancelled:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	// 被取消的等待者不影响共享刷新，其余等待者照常拿到结果
	close(issuer.gate)
	select {
	case cred := <-patient:
		require.Equal(t, "T1", cred.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("remaining waiter starved after another waiter was cancelled")
	}
}

func TestSubsequentCallObservesNewCredential(t *testing.T) {
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueOK("T1", 2 * time.Hour),
	}}
	m := NewManager(issuer, fastPolicy(3))

	_, err := m.GetToken(context.Background())
	require.NoError(t, err)

	// 刷新完成后发起的调用必须命中快路径，不得再触发上游
	cred, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T1", cred.Token)
	require.Equal(t, 1, issuer.callCount())
}

func TestManagerAdoptsStoreCopyInsteadOfRefreshing(t *testing.T) {
	store := NewMemoryStore()
	shared := Credential{Token: "from-store", IssuedAt: time.Now(), ValidFor: 2 * time.Hour}
	require.NoError(t, store.Save(context.Background(), shared))

	issuer := &countingIssuer{}
	m := NewManager(issuer, fastPolicy(3), WithStore(store))

	cred, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from-store", cred.Token)
	require.Equal(t, 0, issuer.callCount(), "a fresh shared copy must short-circuit the upstream call")
}

func TestManagerPersistsRefreshedCredential(t *testing.T) {
	store := NewMemoryStore()
	issuer := &countingIssuer{script: []func() (IssuedCredential, error){
		issueOK("T1", 2 * time.Hour),
	}}
	m := NewManager(issuer, fastPolicy(3), WithStore(store))

	_, err := m.GetToken(context.Background())
	require.NoError(t, err)

	stored, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "T1", stored.Token)
}

func TestInvalidateClearsStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), Credential{
		Token: "T1", IssuedAt: time.Now(), ValidFor: 2 * time.Hour,
	}))

	m := NewManager(&countingIssuer{}, WithStore(store))
	m.Invalidate()

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
