package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, config.RetryBackoffLinear, p.Mode)
	require.Equal(t, time.Second, p.Initial)
	require.Equal(t, 30*time.Second, p.Max)
	require.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	require.Equal(t, 2*time.Second, p.Initial, "initial is clamped to max")
	require.Equal(t, 2*time.Second, p.Max)
	require.Equal(t, config.RetryBackoffFixed, p.Mode)
	require.Equal(t, 5, p.MaxRetries)

	p = NewPolicy("EXPONENTIAL", 0, 0, -1)
	require.Equal(t, config.RetryBackoffExponential, p.Mode)
	require.Equal(t, 2, p.MaxRetries)
}

func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(config.RetryBackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		require.Equal(t, 100*time.Millisecond, fixed.Delay(i))
	}

	linear := NewPolicy(config.RetryBackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	require.Equal(t, 100*time.Millisecond, linear.Delay(1))
	require.Equal(t, 200*time.Millisecond, linear.Delay(2))
	require.Equal(t, 250*time.Millisecond, linear.Delay(3))

	exp := NewPolicy(config.RetryBackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	require.Equal(t, 50*time.Millisecond, exp.Delay(1))
	require.Equal(t, 100*time.Millisecond, exp.Delay(2))
	require.Equal(t, 160*time.Millisecond, exp.Delay(3))
	require.Zero(t, exp.Delay(0))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Policy
		key  string
	}{
		{"zero initial", Policy{Max: time.Second}, "deploy.git.retry_delay"},
		{"zero max", Policy{Initial: time.Second}, "deploy.git.retry_max_delay"},
		{"negative retries", Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}, "deploy.git.max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			require.Error(t, err)
			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			require.Equal(t, errors.CategoryConfig, ce.Category())
			key, _ := ce.Context().GetString("key")
			require.Equal(t, tt.key, key)
		})
	}
}

func TestExponentialDelayCapped(t *testing.T) {
	p := NewPolicy(config.RetryBackoffExponential, time.Second, 10*time.Second, 100)
	require.Equal(t, 10*time.Second, p.Delay(64))
	require.Equal(t, 10*time.Second, p.Delay(1000))
}

func TestFromGit(t *testing.T) {
	p := FromGit(config.GitConfig{MaxRetries: 4, RetryBackoff: config.RetryBackoffFixed, RetryDelay: "10ms", RetryMaxDelay: "1s"})
	require.Equal(t, 4, p.MaxRetries)
	require.Equal(t, 10*time.Millisecond, p.Delay(3))
}

func TestDoRetriesTransientErrors(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, 5*time.Millisecond, 3)
	attempts := 0
	err := Do(context.Background(), p, nil, "push", nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return stderrors.New("temporary network failure")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, 5*time.Millisecond, 3)
	denied := stderrors.New("permission denied")
	attempts := 0
	err := Do(context.Background(), p, nil, "push", func(err error) bool { return stderrors.Is(err, denied) }, func(context.Context) error {
		attempts++
		return denied
	})
	require.ErrorIs(t, err, denied)
	require.Equal(t, 1, attempts)
}

func TestDoExhaustsPolicy(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	boom := stderrors.New("boom")
	attempts := 0
	err := Do(context.Background(), p, nil, "push", nil, func(context.Context) error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, attempts)
}

func TestDoHonorsCancellation(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(ctx, p, nil, "push", nil, func(context.Context) error {
		attempts++
		cancel()
		return stderrors.New("flaky")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
