package command

import (
	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

func quotaExceeded(project, repository string) error {
	return common.ValidateBusinessError(cn.ErrQuotaExceeded, "", project+"/"+repository)
}
