// Package backend 维护可选存储后端的注册表。
//
// 每个后端在自己的文件中通过 init() 调用 MustRegister 注册，配置校验与 CLI
// 只通过键（disk、memory、badger）引用后端，再由 Open 构造 cache.Store。
package backend
