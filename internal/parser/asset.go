package parser

import (
	"strings"
)

// Assets: белый список активов в том виде, как их пишет канал ("EUR/USD OTC").
type Assets struct {
	names map[string]struct{}
}

func NewAssets(list []string) *Assets {
	a := &Assets{names: make(map[string]struct{}, len(list))}
	for _, name := range list {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		a.names[name] = struct{}{}
	}
	return a
}

func (a *Assets) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}

// Match: точное совпадение с учётом регистра; возвращает нормализованное имя.
func (a *Assets) Match(text string) (string, bool) {
	if a == nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	if _, ok := a.names[text]; !ok {
		return "", false
	}
	return NormalizeAsset(text), true
}

// NormalizeAsset приводит имя к торговому виду брокера: "EUR/USD OTC" -> "EURUSD_otc".
func NormalizeAsset(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		f = strings.ReplaceAll(f, "/", "")
		if strings.EqualFold(f, "otc") {
			f = "otc"
		}
		fields[i] = f
	}
	return strings.Join(fields, "_")
}
