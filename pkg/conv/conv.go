// Package conv 读取 YAML 解析出的节点配置（map[string]any）。
//
// YAML 中的 1 会解析成 int、1.0 解析成 float64，数值读取统一做了兼容；
// 键存在但类型不符时记录错误而不是静默回退到默认值。
package conv

import (
	"errors"
	"fmt"
	"math"
)

// ToFloat64 把 YAML/JSON 数值转成 float64，非数值返回 false。
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Reader 按键读取配置，第一次类型错误之后的读取全部返回默认值，错误由 Err 汇总。
//
//	r := conv.NewReader(cfg)
//	alpha := r.Float("alpha", 0.7)
//	strict := r.Bool("strict", false)
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	m    map[string]any
	errs []error
}

func NewReader(m map[string]any) *Reader { return &Reader{m: m} }

// Err 返回所有读取错误的合并结果。
func (r *Reader) Err() error { return errors.Join(r.errs...) }

func (r *Reader) lookup(key string) (any, bool) {
	if r.m == nil {
		return nil, false
	}
	v, ok := r.m[key]
	return v, ok && v != nil
}

func (r *Reader) fail(key, want string, got any) {
	r.errs = append(r.errs, fmt.Errorf("%s: want %s, got %T", key, want, got))
}

func (r *Reader) String(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	s, isStr := v.(string)
	if !isStr {
		r.fail(key, "string", v)
		return def
	}
	return s
}

func (r *Reader) Bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, isBool := v.(bool)
	if !isBool {
		r.fail(key, "bool", v)
		return def
	}
	return b
}

func (r *Reader) Float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, isNum := ToFloat64(v)
	if !isNum {
		r.fail(key, "number", v)
		return def
	}
	return f
}

// Int 读取整数；带小数部分的数值视为类型错误。
func (r *Reader) Int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, isNum := ToFloat64(v)
	if !isNum || f != math.Trunc(f) {
		r.fail(key, "integer", v)
		return def
	}
	return int(f)
}

// Strings 读取字符串列表，整数元素（如 YAML 中未加引号的数字 id）格式化为十进制。
func (r *Reader) Strings(key string) []string {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	raw, isList := v.([]any)
	if !isList {
		r.fail(key, "list", v)
		return nil
	}
	out := make([]string, 0, len(raw))
	for i, e := range raw {
		if s, isStr := e.(string); isStr {
			out = append(out, s)
			continue
		}
		if f, isNum := ToFloat64(e); isNum && f == math.Trunc(f) {
			out = append(out, fmt.Sprintf("%.0f", f))
			continue
		}
		r.fail(fmt.Sprintf("%s[%d]", key, i), "string", e)
	}
	return out
}

// Maps 读取对象列表，例如 filter 节点的 filters。
func (r *Reader) Maps(key string) []map[string]any {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	raw, isList := v.([]any)
	if !isList {
		r.fail(key, "list", v)
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for i, e := range raw {
		m, isMap := e.(map[string]any)
		if !isMap {
			r.fail(fmt.Sprintf("%s[%d]", key, i), "object", e)
			continue
		}
		out = append(out, m)
	}
	return out
}
