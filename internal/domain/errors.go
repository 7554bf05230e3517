package domain

import "errors"

// 错误分类
// 调用方通过 errors.Is 判断错误类型，具体上下文通过 %w 包装附加
var (
	// ErrValidation 参数校验失败（未知的云服务商、上下限颠倒等），在派发任何任务之前返回
	ErrValidation = errors.New("参数校验失败")

	// ErrConnectivity 版本号或快照归档下载失败
	ErrConnectivity = errors.New("网络连接失败")

	// ErrSourceFetch 单个数据源获取报价失败
	ErrSourceFetch = errors.New("数据源获取失败")

	// ErrParse 单行数据解析失败
	ErrParse = errors.New("数据解析失败")
)
