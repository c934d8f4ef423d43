// Package validate 自定义请求参数校验标签
package validate

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// 标签
const (
	TagRoomStatus = "room_status" // 房态
	TagOutcome    = "txn_outcome" // 回调结果 SUCCESS / FAILED
	TagDate       = "date"        // yyyy-MM-dd
	TagStaffRole  = "staff_role"  // 员工角色
	TagIDCard     = "id_card"     // 身份证号
)

// Register 注册到指定校验器
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagRoomStatus: oneOf(models.RoomStatuses),
		TagOutcome:    oneOf([]string{models.TransactionStatusSuccess, models.TransactionStatusFailed}),
		TagStaffRole:  oneOf(models.StaffRoles),
		TagDate: func(fl validator.FieldLevel) bool {
			_, err := utils.ParseDate(fl.Field().String())
			return err == nil
		},
		TagIDCard: func(fl validator.FieldLevel) bool {
			return utils.ValidateIDCard(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterGin 注册到 gin 的默认校验器
func RegisterGin() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return Register(v)
	}
	return nil
}

func oneOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return utils.Contains(values, fl.Field().String())
	}
}
