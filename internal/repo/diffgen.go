package repo

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

// patchOp is one RFC 6902 operation.
type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// createJSONPatch computes an RFC 6902 patch transforming from into to. This
// package's apply-json-patch (applyJSONPatch, on evanphx/json-patch) applies
// arbitrary RFC 6902 patches; the generation side has no equivalent in that
// library, so this walks both documents field-by-field, emitting add/
// remove/replace per object key and a whole-value replace wherever the
// shapes diverge (arrays are always replaced wholesale; recursive array
// diffing is not attempted).
func createJSONPatch(from, to []byte) ([]byte, error) {
	var fromVal, toVal any

	if err := json.Unmarshal(from, &fromVal); err != nil {
		return nil, common.ValidateBusinessError(cn.ErrQueryExecution, "", err.Error())
	}

	if err := json.Unmarshal(to, &toVal); err != nil {
		return nil, common.ValidateBusinessError(cn.ErrQueryExecution, "", err.Error())
	}

	ops := diffValues("", fromVal, toVal)

	out, err := json.Marshal(ops)
	if err != nil {
		return nil, common.ValidateBusinessError(cn.ErrInternal, "", err.Error())
	}

	return out, nil
}

func diffValues(path string, from, to any) []patchOp {
	fromObj, fromIsObj := from.(map[string]any)
	toObj, toIsObj := to.(map[string]any)

	if fromIsObj && toIsObj {
		var ops []patchOp

		for k, v := range fromObj {
			childPath := path + "/" + escapePointer(k)

			if tv, ok := toObj[k]; ok {
				ops = append(ops, diffValues(childPath, v, tv)...)
			} else {
				ops = append(ops, patchOp{Op: "remove", Path: childPath})
			}
		}

		for k, v := range toObj {
			if _, ok := fromObj[k]; !ok {
				ops = append(ops, patchOp{Op: "add", Path: path + "/" + escapePointer(k), Value: v})
			}
		}

		return ops
	}

	if reflect.DeepEqual(from, to) {
		return nil
	}

	return []patchOp{{Op: "replace", Path: path, Value: to}}
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// createTextPatch computes a unified diff transforming from into to.
func createTextPatch(from, to []byte) []byte {
	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(string(from), string(to), false)
	patches := dmp.PatchMake(string(from), diffs)

	return []byte(dmp.PatchToText(patches))
}
