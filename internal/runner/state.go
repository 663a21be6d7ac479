package runner

import (
	"sync"

	"signal_trader/internal/models"
)

const seenCap = 256

// signalState: общее состояние сигналов. Меняют классификатор и мониторы.
type signalState struct {
	mu sync.Mutex

	asset         string
	timeframe     int // секунды
	tradingActive bool
	autoSelect    bool

	ranked []string
	index  int

	losses      int
	counted     map[uint64]struct{}
	countedRing []uint64
	countedPos  int

	lastMessageID string
	seen          map[string]struct{}
	seenRing      []string
	seenPos       int

	recent    []models.RecentMessage
	recentCap int
}

func newSignalState(recentCap int) *signalState {
	if recentCap <= 0 {
		recentCap = 10
	}
	return &signalState{
		index:     -1,
		seen:      make(map[string]struct{}, seenCap),
		counted:   make(map[uint64]struct{}, seenCap),
		seenRing:  make([]string, 0, seenCap),
		recentCap: recentCap,
	}
}

// markSeen двигает водяной знак. false: сообщение уже было.
func (s *signalState) markSeen(id string) bool {
	if id == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.lastMessageID {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}

	if len(s.seenRing) < seenCap {
		s.seenRing = append(s.seenRing, id)
	} else {
		delete(s.seen, s.seenRing[s.seenPos])
		s.seenRing[s.seenPos] = id
		s.seenPos = (s.seenPos + 1) % seenCap
	}
	s.seen[id] = struct{}{}
	s.lastMessageID = id
	return true
}

func (s *signalState) remember(m models.RecentMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Asset = s.asset
	m.TimeframeSec = s.timeframe
	s.recent = append(s.recent, m)
	if over := len(s.recent) - s.recentCap; over > 0 {
		s.recent = append(s.recent[:0:0], s.recent[over:]...)
	}
}

func (s *signalState) setTradingActive(v bool) {
	s.mu.Lock()
	s.tradingActive = v
	s.mu.Unlock()
}

func (s *signalState) setTimeframe(sec int) {
	s.mu.Lock()
	s.timeframe = sec
	s.mu.Unlock()
}

// setAssetFromText меняет актив, только если автовыбор выключен.
func (s *signalState) setAssetFromText(asset string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoSelect {
		return false
	}
	s.asset = asset
	return true
}

type tradeContext struct {
	asset         string
	timeframe     int
	tradingActive bool
}

func (s *signalState) tradeContext() tradeContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tradeContext{asset: s.asset, timeframe: s.timeframe, tradingActive: s.tradingActive}
}

func (s *signalState) setAutoSelect(v bool) {
	s.mu.Lock()
	s.autoSelect = v
	s.losses = 0
	s.mu.Unlock()
}

func (s *signalState) autoSelectEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoSelect
}

// countOutcome ведёт серию проигрышей: одна серия сигналов (cycle) считается один раз,
// сколько бы брокеров её ни торговало. true: пора переключать актив.
func (s *signalState) countOutcome(cycle uint64, result models.Result, threshold int) bool {
	if result != models.ResultWin && result != models.ResultLoss {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.autoSelect {
		return false
	}
	if cycle != 0 && !s.markCounted(cycle) {
		return false
	}

	if result == models.ResultWin {
		s.losses = 0
		return false
	}
	s.losses++
	return threshold > 0 && s.losses >= threshold
}

// markCounted запоминает цикл; циклы могут закрываться не по порядку.
// Вызывать под s.mu.
func (s *signalState) markCounted(cycle uint64) bool {
	if _, ok := s.counted[cycle]; ok {
		return false
	}
	if len(s.countedRing) < seenCap {
		s.countedRing = append(s.countedRing, cycle)
	} else {
		delete(s.counted, s.countedRing[s.countedPos])
		s.countedRing[s.countedPos] = cycle
		s.countedPos = (s.countedPos + 1) % seenCap
	}
	s.counted[cycle] = struct{}{}
	return true
}

func (s *signalState) setRanking(ranked []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ranked = append([]string(nil), ranked...)
	s.index = -1
	for i, a := range s.ranked {
		if a == s.asset {
			s.index = i
			break
		}
	}
}

func (s *signalState) rankedLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ranked)
}

// nextRanked: следующий актив по рейтингу; ok=false, если список кончился.
func (s *signalState) nextRanked() (string, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.index + 1
	if next < 0 || next >= len(s.ranked) {
		return "", 0, false
	}
	return s.ranked[next], next, true
}

// selectRanked ставит актив из рейтинга и обнуляет серию.
func (s *signalState) selectRanked(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.ranked) {
		return "", false
	}
	s.index = index
	s.asset = s.ranked[index]
	s.losses = 0
	return s.asset, true
}

func (s *signalState) snapshot() models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.Status{
		CurrentAsset:      s.asset,
		CurrentTimeframe:  s.timeframe,
		TradingActive:     s.tradingActive,
		AutoSelectEnabled: s.autoSelect,
		RankedAssets:      append([]string(nil), s.ranked...),
		AssetIndex:        s.index,
		ConsecutiveLosses: s.losses,
		RecentMessages:    append([]models.RecentMessage(nil), s.recent...),
	}
}
