// Package cex implements exchange adapters that turn public ticker endpoints
// into normalized samples.
package cex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

// decodeEach decodes every record independently so that one malformed ticker
// drops only itself.
func decodeEach[T any](batch *sources.Batch, records []json.RawMessage, fn func(T)) {
	for i, raw := range records {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			batch.Skip(fmt.Sprintf("#%d", i), err)
			continue
		}
		fn(rec)
	}
}

// decodeKeyed is decodeEach for payloads keyed by symbol. Keys are visited in
// sorted order so output is deterministic.
func decodeKeyed[T any](batch *sources.Batch, records map[string]json.RawMessage, fn func(string, T)) {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var rec T
		if err := json.Unmarshal(records[k], &rec); err != nil {
			batch.Skip(k, err)
			continue
		}
		fn(k, rec)
	}
}

func invalidResponse(err error) error {
	return fmt.Errorf("%w: %v", sources.ErrInvalidResponse, err)
}

// flexPrice accepts a price encoded as a JSON string, a JSON number or null.
type flexPrice string

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = flexPrice(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = flexPrice(n.String())
	return nil
}
