package reporter

import (
	"errors"

	"github.com/dreamsxin/sysguard/monitor"
)

// Multi 把一个周期的产出扇出给多个消费端
//
// 守护模式用它同时挂接事件日志和历史记录；单个消费端失败
// 不影响其余消费端。
type Multi []monitor.Reporter

// Report 依次上报，汇总所有错误
func (m Multi) Report(tick monitor.Tick) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(tick); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
