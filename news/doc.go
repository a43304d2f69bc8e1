/*
Package news 提供固定的市场新闻样本数据与摘要格式化。

Fixture 返回五条静态新闻，Slice 按半开区间 [start, end) 取出并格式化为
以换行分隔的摘要文本。越界下标会被截断，不会返回错误。
*/
package news
