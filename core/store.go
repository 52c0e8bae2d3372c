package core

import "context"

// Store 是嵌入缓存使用的字节键值存储，key 由调用方拼好（模型名 + 文本哈希）。
// 实现：store.MemoryStore（单进程）、store.RedisStore（多实例共享）。
type Store interface {
	Name() string

	// Get 在 key 不存在或已过期时返回 ErrStoreNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 的 ttl 单位为秒，省略或 <= 0 表示不过期。
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	Delete(ctx context.Context, key string) error

	// BatchGet 只返回命中的 key。
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	Close() error
}

// ErrStoreNotFound 表示缓存未命中。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 判断是否为 store 模块的 NOT_FOUND（缓存未命中或存储层找不到实体）。
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}
