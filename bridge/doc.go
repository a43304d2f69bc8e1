/*
包 bridge 把新闻流与对话框架连接起来。

NewsReplyProvider 作为 agent.ReplyProvider 注册到 user proxy 上，
每次被调用时先等待一段模拟延迟，再取走 stream.Cell 中累积的新闻；
Drive 在生产者结束前不断让 user proxy 生成回复并转发给 assistant；
Session 把 Cell、Producer、Provider 注册与 Drive 组装在一起，
用 errgroup 同时运行生产者与轮询循环。
*/
package bridge
