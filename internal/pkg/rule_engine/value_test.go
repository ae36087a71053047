package rule_engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestValue_FromAny 测试任意值到封闭变体的转换
func TestValue_FromAny(t *testing.T) {
	assert.Equal(t, KindNull, FromAny(nil).Kind())
	assert.Equal(t, KindString, FromAny("abc").Kind())
	assert.Equal(t, KindNumber, FromAny(3.14).Kind())
	assert.Equal(t, KindNumber, FromAny(42).Kind())
	assert.Equal(t, KindNumber, FromAny(int64(42)).Kind())
	assert.Equal(t, KindBool, FromAny(true).Kind())
	assert.Equal(t, KindTime, FromAny(time.Now()).Kind())
	assert.Equal(t, KindList, FromAny([]interface{}{1, "a"}).Kind())
	assert.Equal(t, KindList, FromAny([]string{"a", "b"}).Kind())
}

// TestValue_Coercion 测试数值/字符串强制转换规则
func TestValue_Coercion(t *testing.T) {
	// 字符串数值可解析
	n, ok := FromAny("123.5").AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 123.5, n)

	// 非数值字符串解析失败
	_, ok = FromAny("abc").AsNumber()
	assert.False(t, ok)

	// 整数与浮点的字符串表示等价
	assert.Equal(t, "10", FromAny(10).AsString())
	assert.Equal(t, "10", FromAny(float64(10)).AsString())

	// 列表转字符串
	assert.Equal(t, "a,b", FromAny([]string{"a", "b"}).AsString())
}

// TestValue_Compare 测试比较语义
func TestValue_Compare(t *testing.T) {
	// 数值优先
	assert.Equal(t, 1, FromAny(100).Compare(FromAny("20")))
	assert.Equal(t, -1, FromAny("5").Compare(FromAny(50)))
	assert.Equal(t, 0, FromAny("10").Compare(FromAny(10.0)))

	// 无法转数值时按字符串比较（忽略大小写）
	assert.Equal(t, 0, FromAny("ABC").Compare(FromAny("abc")))
	assert.Equal(t, -1, FromAny("apple").Compare(FromAny("Banana")))

	// 相等比较忽略大小写
	assert.True(t, FromAny("USD").EqualsFold(FromAny("usd")))
	assert.True(t, FromAny(10).EqualsFold(FromAny("10")))
	assert.False(t, FromAny("USD").EqualsFold(FromAny("EUR")))
}
