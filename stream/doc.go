/*
Package stream 提供单槽结果单元（Cell）与周期性新闻生产者（Producer）。

Cell 是显式的标签状态 {Empty, Holding(entries)}，由一把互斥锁保护，
对外暴露 TrySet、AppendOrInit、DrainAndClear 三个原子操作。临界区内
不包含任何阻塞点。

Producer 在独立 goroutine 中按固定次数 tick：计算下一段新闻、写入 Cell、
然后等待固定间隔。完成后关闭 Done 通道，Err 返回首个失败原因。
*/
package stream
