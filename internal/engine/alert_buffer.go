package engine

// TemporalAlertBuffer 时序确认缓冲区
// 固定容量环形缓冲，按插入计数取模寻址，保存最近 N 个原始报警布尔值。
// 由单个 PatientSession 独占持有，会话评估期间持锁访问。
type TemporalAlertBuffer struct {
	entries  []bool
	capacity int
	total    int // 累计插入数
}

// NewTemporalAlertBuffer 创建缓冲区（capacity 必须为正，由配置校验保证）
func NewTemporalAlertBuffer(capacity int) *TemporalAlertBuffer {
	return &TemporalAlertBuffer{
		entries:  make([]bool, capacity),
		capacity: capacity,
	}
}

// Push 追加最新的原始报警，超出容量时覆盖最旧的一项
// 返回缓冲区是否确认报警：仅当缓冲区已满且所有条目均为 true
func (b *TemporalAlertBuffer) Push(rawAlert bool) bool {
	b.entries[b.total%b.capacity] = rawAlert
	b.total++

	if !b.Full() {
		return false
	}
	for _, v := range b.entries {
		if !v {
			return false
		}
	}
	return true
}

// Len 当前长度（≤ capacity）
func (b *TemporalAlertBuffer) Len() int {
	if b.total < b.capacity {
		return b.total
	}
	return b.capacity
}

// Full 缓冲区是否已满
func (b *TemporalAlertBuffer) Full() bool {
	return b.total >= b.capacity
}

// Reset 清空缓冲区（新病人复用会话时调用）
func (b *TemporalAlertBuffer) Reset() {
	for i := range b.entries {
		b.entries[i] = false
	}
	b.total = 0
}
