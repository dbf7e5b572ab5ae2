// Package browser 管理由 go-rod 驱动的Chrome会话
//
// # 概述
//
// 每个会话对应一个独立的Chrome进程和一个标签页, 由 Manager 统一登记和回收。
// 会话表使用读写锁保护, 同一会话上的操作由会话自己的互斥锁串行执行,
// 不同会话之间可以并发。
//
// # 核心组件
//
// ## Manager
//
// 负责会话的启动、查找、关闭以及空闲回收。启动前依次检查会话上限和系统资源,
// 启动失败时按 browser.launch_retries 重试。
//
//	manager := NewManager(opts, headerProvider, monitor)
//	info, err := manager.Start(ctx, true)
//	session, err := manager.Get(info.SessionID)
//	defer manager.CloseAll()
//
// ## Session
//
// 提供导航、截图、脚本执行、点击等待以及布局/组件/响应式分析。
// 渲染相关的数据由页面脚本采集, 分类与分区判断在Go侧完成,
// 静态结构部分交给 analyzer 包处理。
//
// ## ResourceMonitor
//
// 基于 gopsutil 采样内存和CPU, 可用内存低于阈值时拒绝启动新的浏览器。
package browser
