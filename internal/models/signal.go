package models

import "time"

// Direction: направление бинарной сделки.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionCall Direction = "call"
	DirectionPut  Direction = "put"
)

func (d Direction) Valid() bool {
	return d == DirectionCall || d == DirectionPut
}

// InboundMessage: одно сообщение из канала сигналов.
// Пустой ID и нулевой Timestamp означают "нет данных".
type InboundMessage struct {
	Text      string
	ID        string
	Timestamp time.Time
}

// MessageKind: чем классификатор посчитал сообщение.
type MessageKind string

const (
	KindDuplicate    MessageKind = "duplicate"
	KindStale        MessageKind = "stale"
	KindSessionStart MessageKind = "session_start"
	KindSessionStop  MessageKind = "session_stop"
	KindCatchUp      MessageKind = "catch_up"
	KindResult       MessageKind = "result"
	KindTimeframe    MessageKind = "timeframe"
	KindAsset        MessageKind = "asset"
	KindDirection    MessageKind = "direction"
	KindUnrecognized MessageKind = "unrecognized"
)

type RecentMessage struct {
	Time         time.Time   `json:"time"`
	Text         string      `json:"text"`
	Kind         MessageKind `json:"kind"`
	Asset        string      `json:"asset,omitempty"`
	TimeframeSec int         `json:"timeframe_sec,omitempty"`
}
