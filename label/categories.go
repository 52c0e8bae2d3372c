package label

import (
	"slices"

	"github.com/rushteam/decorec/core"
)

// Categories 是固定的商品类别标签集合，顺序即平局时的优先顺序。
var Categories = []string{
	"lighting",
	"home decor and accessories",
	"storage and organization",
	"tables and chairs",
	"desks and desk chairs",
	"home textiles",
	"sofas and armchairs",
	"flooring, rugs and mats",
	"outdoor",
	"plants and gardening",
	"beds and mattresses",
	"smart home and technology",
	"kitchen and tableware",
}

// IsCategory 判断 c 是否属于固定类别集合。
func IsCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// ValidateCategory 校验调用方提供的类别，非法时返回带允许值集合的 VALIDATION 错误。
func ValidateCategory(c string) error {
	if IsCategory(c) {
		return nil
	}
	return core.Validation(core.ModuleLabel, "invalid category "+`"`+c+`"`, Categories)
}

// ValidateCategories 校验类别白名单中的每一项。
func ValidateCategories(cs []string) error {
	for _, c := range cs {
		if err := ValidateCategory(c); err != nil {
			return err
		}
	}
	return nil
}
