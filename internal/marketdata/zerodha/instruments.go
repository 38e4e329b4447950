package zerodha

import (
	"strings"
	"sync"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

type instrument struct {
	token int
	name  string
}

// instrumentMapper maps exchange trading symbols to Kite instrument tokens.
// It is filled once from the exchange instrument dump and read many times.
type instrumentMapper struct {
	bySymbol map[string]instrument
	mu       sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{
		bySymbol: make(map[string]instrument),
	}
}

// load replaces all mappings with the equity instruments in list
func (im *instrumentMapper) load(list []kiteconnect.Instrument) {
	bySymbol := make(map[string]instrument, len(list))
	for _, in := range list {
		if in.InstrumentType != "" && in.InstrumentType != "EQ" {
			continue
		}
		sym := strings.ToUpper(in.Tradingsymbol)
		bySymbol[sym] = instrument{token: in.InstrumentToken, name: in.Name}
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	im.bySymbol = bySymbol
}

func (im *instrumentMapper) lookup(symbol string) (instrument, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	in, ok := im.bySymbol[strings.ToUpper(symbol)]
	return in, ok
}

func (im *instrumentMapper) size() int {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return len(im.bySymbol)
}
