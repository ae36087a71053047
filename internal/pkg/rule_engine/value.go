/**
 * 规则引擎:带类型标签的值
 * @author: sun977
 * @date: 2025.12.20
 * @description: 请求数据与规则期望值的封闭变体类型（String|Number|Bool|Time|List|Null），
 *               统一数值/字符串的强制转换规则，避免散落的运行时类型断言
 * @func: FromAny / AsNumber / AsString / Compare / EqualsFold
 */
package rule_engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind 值类型标签
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindList
)

// Value 带类型标签的值
// 零值即 Null
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	t    time.Time
	list []Value
}

// FromAny 将任意JSON反序列化结果转换为Value
// 未识别的类型统一落到字符串表示
func FromAny(v interface{}) Value {
	if v == nil {
		return Value{kind: KindNull}
	}
	switch x := v.(type) {
	case string:
		return Value{kind: KindString, str: x}
	case bool:
		return Value{kind: KindBool, b: x}
	case float64:
		return Value{kind: KindNumber, num: x}
	case float32:
		return Value{kind: KindNumber, num: float64(x)}
	case int:
		return Value{kind: KindNumber, num: float64(x)}
	case int8:
		return Value{kind: KindNumber, num: float64(x)}
	case int16:
		return Value{kind: KindNumber, num: float64(x)}
	case int32:
		return Value{kind: KindNumber, num: float64(x)}
	case int64:
		return Value{kind: KindNumber, num: float64(x)}
	case uint:
		return Value{kind: KindNumber, num: float64(x)}
	case uint8:
		return Value{kind: KindNumber, num: float64(x)}
	case uint16:
		return Value{kind: KindNumber, num: float64(x)}
	case uint32:
		return Value{kind: KindNumber, num: float64(x)}
	case uint64:
		return Value{kind: KindNumber, num: float64(x)}
	case time.Time:
		return Value{kind: KindTime, t: x}
	case []interface{}:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			items = append(items, FromAny(item))
		}
		return Value{kind: KindList, list: items}
	case []string:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			items = append(items, Value{kind: KindString, str: item})
		}
		return Value{kind: KindList, list: items}
	default:
		return Value{kind: KindString, str: fmt.Sprintf("%v", x)}
	}
}

// Kind 返回类型标签
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull 是否为空值
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsString 返回规范化字符串表示
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		// 去掉多余小数位，保持 10 与 10.0 等价
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			parts = append(parts, item.AsString())
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// AsNumber 尝试将值强制转换为数值
// 字符串仅在可解析时转换成功
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindTime:
		return float64(v.t.Unix()), true
	default:
		return 0, false
	}
}

// AsList 返回列表元素
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// EqualsFold 相等比较
// 两侧均可转数值时按数值比较，否则按字符串比较（忽略大小写）
func (v Value) EqualsFold(other Value) bool {
	if vn, ok1 := v.AsNumber(); ok1 {
		if on, ok2 := other.AsNumber(); ok2 {
			return vn == on
		}
	}
	return strings.EqualFold(v.AsString(), other.AsString())
}

// Compare 大小比较，返回 -1/0/1
// 两侧均可转数值时按数值比较，否则退化为字符串比较（忽略大小写）
func (v Value) Compare(other Value) int {
	if vn, ok1 := v.AsNumber(); ok1 {
		if on, ok2 := other.AsNumber(); ok2 {
			switch {
			case vn < on:
				return -1
			case vn > on:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(strings.ToLower(v.AsString()), strings.ToLower(other.AsString()))
}
