package runner

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

func runCycle(t *testing.T, e *Engine, outcome models.Result, brokers ...*fakeBroker) {
	t.Helper()
	for _, b := range brokers {
		b.setOutcome(outcome)
	}
	if err := e.Execute(context.Background(), models.DirectionCall, false, time.Millisecond); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	e.tasks.Wait()
}

func TestAutoSwitchAfterLossStreak(t *testing.T) {
	b := newFakeBroker("b1")
	ranker := &fakeRanker{lists: [][]string{{"AUDCAD_otc", "EURUSD_otc", "CHFJPY"}}}
	e := newTestEngine(t, []Option{WithRanker(ranker)}, b)

	if err := e.ToggleAutoSelect(context.Background(), true); err != nil {
		t.Fatalf("ToggleAutoSelect: %v", err)
	}
	if a := e.Status().CurrentAsset; a != "AUDCAD_otc" {
		t.Fatalf("asset = %q, want top ranked", a)
	}

	for i := 0; i < 3; i++ {
		runCycle(t, e, models.ResultLoss, b)
	}
	st := e.Status()
	if st.CurrentAsset != "AUDCAD_otc" || st.ConsecutiveLosses != 3 {
		t.Fatalf("after 3 losses: asset=%q losses=%d", st.CurrentAsset, st.ConsecutiveLosses)
	}

	runCycle(t, e, models.ResultLoss, b)
	st = e.Status()
	if st.CurrentAsset != "EURUSD_otc" || st.AssetIndex != 1 {
		t.Fatalf("after 4 losses: asset=%q index=%d, want EURUSD_otc #1", st.CurrentAsset, st.AssetIndex)
	}
	if st.ConsecutiveLosses != 0 {
		t.Fatalf("losses = %d, want reset", st.ConsecutiveLosses)
	}

	// martingale continues across the switch: 1, 2, 4, 8 -> 16
	bs := st.Brokers[0]
	if bs.LastResult != models.ResultLoss || !bs.LastTradeAmount.Decimal.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("broker state reset by switch: %+v", bs)
	}
	runCycle(t, e, models.ResultLoss, b)
	placed := b.placements()
	last := placed[len(placed)-1]
	if !last.Amount.Equal(decimal.NewFromInt(16)) || last.Asset != "EURUSD_otc" {
		t.Fatalf("next trade = %+v, want 16 on EURUSD_otc", last)
	}
}

func TestWinResetsLossStreak(t *testing.T) {
	b := newFakeBroker("b1")
	ranker := &fakeRanker{lists: [][]string{{"AUDCAD_otc", "EURUSD_otc"}}}
	e := newTestEngine(t, []Option{WithRanker(ranker)}, b)
	if err := e.ToggleAutoSelect(context.Background(), true); err != nil {
		t.Fatalf("ToggleAutoSelect: %v", err)
	}

	runCycle(t, e, models.ResultLoss, b)
	runCycle(t, e, models.ResultLoss, b)
	runCycle(t, e, models.ResultWin, b)
	if l := e.Status().ConsecutiveLosses; l != 0 {
		t.Fatalf("losses = %d, want 0 after win", l)
	}
	for i := 0; i < 3; i++ {
		runCycle(t, e, models.ResultLoss, b)
	}
	if a := e.Status().CurrentAsset; a != "AUDCAD_otc" {
		t.Fatalf("asset = %q, switched too early", a)
	}
}

func TestLossesCountOncePerCycle(t *testing.T) {
	b1, b2, b3 := newFakeBroker("b1"), newFakeBroker("b2"), newFakeBroker("b3")
	ranker := &fakeRanker{lists: [][]string{{"AUDCAD_otc", "EURUSD_otc"}}}
	e := newTestEngine(t, []Option{WithRanker(ranker)}, b1, b2, b3)
	if err := e.ToggleAutoSelect(context.Background(), true); err != nil {
		t.Fatalf("ToggleAutoSelect: %v", err)
	}

	runCycle(t, e, models.ResultLoss, b1, b2, b3)
	if l := e.Status().ConsecutiveLosses; l != 1 {
		t.Fatalf("losses = %d, want 1 for one cycle", l)
	}
}

func TestLossesCountedWhenCyclesSettleOutOfOrder(t *testing.T) {
	b := newFakeBroker("b1")
	ranker := &fakeRanker{lists: [][]string{{"AUDCAD_otc", "EURUSD_otc"}}}
	e := newTestEngine(t, []Option{WithRanker(ranker)}, b)
	ctx := context.Background()
	if err := e.ToggleAutoSelect(ctx, true); err != nil {
		t.Fatalf("ToggleAutoSelect: %v", err)
	}
	b.setOutcome(models.ResultLoss)

	// длинная сделка, затем короткий догон: догон закрывается первым
	if err := e.Execute(ctx, models.DirectionCall, false, 80*time.Millisecond); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := e.Execute(ctx, models.DirectionPut, true, time.Millisecond); err != nil {
		t.Fatalf("Execute catch-up: %v", err)
	}
	e.tasks.Wait()

	if l := e.Status().ConsecutiveLosses; l != 2 {
		t.Fatalf("losses = %d, want 2 for two losing cycles", l)
	}
}

func TestCountOutcomeOncePerCycleAnyOrder(t *testing.T) {
	s := newSignalState(10)
	s.setAutoSelect(true)

	steps := []struct {
		cycle uint64
		want  int
	}{
		{2, 1},
		{1, 2},
		{2, 2},
		{1, 2},
		{3, 3},
	}
	for _, st := range steps {
		s.countOutcome(st.cycle, models.ResultLoss, 10)
		if got := s.snapshot().ConsecutiveLosses; got != st.want {
			t.Fatalf("after cycle %d: losses = %d, want %d", st.cycle, got, st.want)
		}
	}
}

func TestLossesIgnoredWithoutAutoSelect(t *testing.T) {
	b := newFakeBroker("b1")
	e := newTestEngine(t, nil, b)
	prime(t, e)

	for i := 0; i < 5; i++ {
		runCycle(t, e, models.ResultLoss, b)
	}
	st := e.Status()
	if st.ConsecutiveLosses != 0 || st.CurrentAsset != "EURUSD_otc" {
		t.Fatalf("status = %+v", st)
	}
}

func TestSwitchWithEmptyRankingDefers(t *testing.T) {
	b := newFakeBroker("b1")
	ranker := &fakeRanker{
		lists: [][]string{{"AUDCAD_otc", "EURUSD_otc"}},
		errs:  []error{errors.New("quotes unavailable")},
	}
	e := newTestEngine(t, []Option{WithRanker(ranker)}, b)
	ctx := context.Background()

	e.HandleMessage(ctx, msg("1", "CHF/JPY"))
	if err := e.ToggleAutoSelect(ctx, true); err == nil {
		t.Fatal("expected ranking error")
	}
	if a := e.Status().CurrentAsset; a != "CHFJPY" {
		t.Fatalf("asset = %q, want retained CHFJPY", a)
	}

	for i := 0; i < 4; i++ {
		runCycle(t, e, models.ResultLoss, b)
	}
	st := e.Status()
	if st.CurrentAsset != "CHFJPY" || len(st.RankedAssets) != 2 {
		t.Fatalf("after deferred switch: %+v", st)
	}

	runCycle(t, e, models.ResultLoss, b)
	if a := e.Status().CurrentAsset; a != "AUDCAD_otc" {
		t.Fatalf("asset = %q, want AUDCAD_otc", a)
	}
}

func TestSwitchOverflowRefreshesRanking(t *testing.T) {
	ranker := &fakeRanker{lists: [][]string{
		{"AUDCAD_otc", "EURUSD_otc"},
		{"USDJPY_otc", "CADJPY_otc"},
	}}
	e := newTestEngine(t, []Option{WithRanker(ranker)})
	ctx := context.Background()
	if err := e.ToggleAutoSelect(ctx, true); err != nil {
		t.Fatalf("ToggleAutoSelect: %v", err)
	}

	e.SwitchToNextAsset(ctx)
	if a := e.Status().CurrentAsset; a != "EURUSD_otc" {
		t.Fatalf("asset = %q", a)
	}

	e.SwitchToNextAsset(ctx)
	st := e.Status()
	if st.CurrentAsset != "USDJPY_otc" || st.AssetIndex != 0 {
		t.Fatalf("after overflow: asset=%q index=%d", st.CurrentAsset, st.AssetIndex)
	}
}

func TestSwitchOverflowRefreshFailureKeepsAsset(t *testing.T) {
	ranker := &fakeRanker{
		lists: [][]string{{"AUDCAD_otc"}},
		errs:  []error{nil, errors.New("down")},
	}
	e := newTestEngine(t, []Option{WithRanker(ranker)})
	ctx := context.Background()
	if err := e.ToggleAutoSelect(ctx, true); err != nil {
		t.Fatalf("ToggleAutoSelect: %v", err)
	}

	e.SwitchToNextAsset(ctx)
	if a := e.Status().CurrentAsset; a != "AUDCAD_otc" {
		t.Fatalf("asset = %q, want retained", a)
	}
}

type countingWarmer struct {
	assets chan string
}

func (w *countingWarmer) Warmup(_ context.Context, asset string) error {
	w.assets <- asset
	return nil
}

func TestSwitchWarmsUpNewAsset(t *testing.T) {
	ranker := &fakeRanker{lists: [][]string{{"AUDCAD_otc", "EURUSD_otc"}}}
	w := &countingWarmer{assets: make(chan string, 4)}
	e := newTestEngine(t, []Option{WithRanker(ranker), WithWarmer(w)})
	if err := e.ToggleAutoSelect(context.Background(), true); err != nil {
		t.Fatalf("ToggleAutoSelect: %v", err)
	}
	e.SwitchToNextAsset(context.Background())
	e.tasks.Wait()

	got := []string{<-w.assets, <-w.assets}
	sort.Strings(got)
	if got[0] != "AUDCAD_otc" || got[1] != "EURUSD_otc" {
		t.Fatalf("warmed = %v", got)
	}
}
