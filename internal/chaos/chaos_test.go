package chaos

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/bus"
	"clob/internal/schema"
)

type recordSink struct {
	seqs []uint64
	recv []int64
	err  error
}

func (s *recordSink) Name() string { return "record" }

func (s *recordSink) Consume(_ context.Context, e bus.Event) error {
	if s.err != nil {
		return s.err
	}
	s.seqs = append(s.seqs, e.Header.Seq)
	s.recv = append(s.recv, e.Header.RecvTime)
	return nil
}

func deliver(t *testing.T, s *Sink, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		require.NoError(t, s.Consume(ctx, bus.Event{Header: schema.NewHeader(schema.EventDeposit, uint64(i), 0, 1000)}))
	}
	require.NoError(t, s.Flush(ctx))
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		desc string
		cfg  Config
		ok   bool
	}{
		{desc: "zero rates", cfg: Config{ReorderWindow: 1}, ok: true},
		{desc: "drop above one", cfg: Config{DropRate: 1.5, ReorderWindow: 1}},
		{desc: "negative duplicate", cfg: Config{DuplicateRate: -0.1, ReorderWindow: 1}},
		{desc: "zero window", cfg: Config{}},
		{desc: "negative delay", cfg: Config{ReorderWindow: 1, MaxDelay: -time.Second}},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPassThrough(t *testing.T) {
	rec := &recordSink{}
	s, err := Wrap(rec, Config{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "chaos/record", s.Name())

	deliver(t, s, 5)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, rec.seqs)
}

func TestDropAll(t *testing.T) {
	rec := &recordSink{}
	s, err := Wrap(rec, Config{Seed: 1, DropRate: 1})
	require.NoError(t, err)

	deliver(t, s, 10)
	assert.Empty(t, rec.seqs)
}

func TestDuplicateAll(t *testing.T) {
	rec := &recordSink{}
	s, err := Wrap(rec, Config{Seed: 1, DuplicateRate: 1})
	require.NoError(t, err)

	deliver(t, s, 3)
	assert.Equal(t, []uint64{1, 1, 2, 2, 3, 3}, rec.seqs)
}

func TestReorderKeepsEveryEvent(t *testing.T) {
	rec := &recordSink{}
	s, err := Wrap(rec, Config{Seed: 7, ReorderWindow: 4})
	require.NoError(t, err)

	deliver(t, s, 20)
	require.Len(t, rec.seqs, 20)
	got := append([]uint64(nil), rec.seqs...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, seq := range got {
		assert.Equal(t, uint64(i+1), seq)
	}
}

func TestSameSeedSameOrder(t *testing.T) {
	cfg := Config{Seed: 42, ReorderWindow: 3, DropRate: 0.2, DuplicateRate: 0.2}
	a, b := &recordSink{}, &recordSink{}
	sa, err := Wrap(a, cfg)
	require.NoError(t, err)
	sb, err := Wrap(b, cfg)
	require.NoError(t, err)

	deliver(t, sa, 50)
	deliver(t, sb, 50)
	assert.Equal(t, a.seqs, b.seqs)
}

func TestDelayShiftsRecvTime(t *testing.T) {
	rec := &recordSink{}
	s, err := Wrap(rec, Config{Seed: 3, MaxDelay: time.Microsecond})
	require.NoError(t, err)

	deliver(t, s, 20)
	for _, recv := range rec.recv {
		assert.GreaterOrEqual(t, recv, int64(1000))
		assert.LessOrEqual(t, recv, int64(2000))
	}
}

func TestConsumeReturnsSinkError(t *testing.T) {
	boom := errors.New("boom")
	s, err := Wrap(&recordSink{err: boom}, Config{Seed: 1})
	require.NoError(t, err)

	err = s.Consume(context.Background(), bus.Event{Header: schema.NewHeader(schema.EventDeposit, 1, 0, 0)})
	assert.ErrorIs(t, err, boom)
}
