package http

import (
	"strconv"
	"strings"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

// parseRevision translates the wire revision syntax of §6 ("head", "-N",
// or a positive integer) into the int32 the repository engine expects:
// 0 means head, negative is relative, positive is absolute.
func parseRevision(s string) (int32, error) {
	if s == "" || strings.EqualFold(s, "head") {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, common.ValidateBusinessError(cn.ErrInvalidPathParam, "", "revision "+s)
	}

	return int32(n), nil
}
