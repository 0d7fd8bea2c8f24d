package repo

import (
	"github.com/tidwall/gjson"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

// applyQuery projects entry's content through q. identity returns entry
// unchanged; json-path applies each expression in sequence using gjson's
// path syntax (the closest real ecosystem substitute for full JSON-Path,
// documented in SPEC_FULL.md); text coerces JSON content to its raw text
// form.
func applyQuery(entry Entry, q Query) (Entry, error) {
	switch q.Type {
	case "", QueryIdentity:
		return entry, nil
	case QueryText:
		out := entry
		out.Kind = EntryText

		return out, nil
	case QueryJSONPath:
		if entry.Kind != EntryJSON {
			return Entry{}, common.ValidateBusinessError(cn.ErrQueryExecution, "",
				"json-path query applied to a non-JSON entry: "+entry.Path)
		}

		result := entry.Content

		for _, expr := range q.Expressions {
			r := gjson.GetBytes(result, expr)
			if !r.Exists() {
				return Entry{}, common.ValidateBusinessError(cn.ErrQueryExecution, "",
					"json-path expression matched nothing: "+expr)
			}

			result = []byte(r.Raw)
		}

		out := entry
		out.Content = result

		return out, nil
	default:
		return Entry{}, common.ValidateBusinessError(cn.ErrQueryExecution, "", "unknown query type "+string(q.Type))
	}
}
