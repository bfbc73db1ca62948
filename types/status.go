package types

import "fmt"

// JobStatus is the lifecycle state of a generation job as reported by the
// platform. The numeric values are part of the wire contract and must not
// be reordered.
type JobStatus int

const (
	// StatusPending 任务已受理，等待调度。
	StatusPending JobStatus = 1
	// StatusProcessing 任务执行中。
	StatusProcessing JobStatus = 2
	// StatusGenerated 图像已生成，等待后续处理。
	StatusGenerated JobStatus = 3
	// StatusAuditing 内容审核中。
	StatusAuditing JobStatus = 4
	// StatusSuccess 终态：生成成功，结果可用。
	StatusSuccess JobStatus = 5
	// StatusFailed 终态：平台判定失败。
	StatusFailed JobStatus = 6
	// StatusTimeout 终态：平台侧执行超时。
	StatusTimeout JobStatus = 7
)

// Terminal reports whether the status ends the job lifecycle. Once a
// terminal status is observed polling must stop; the platform will not
// transition the job again.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimeout:
		return true
	default:
		return false
	}
}

// Known reports whether the value is one of the documented platform codes.
// Unknown codes are treated as non-terminal so polling continues rather
// than misclassifying a new intermediate state as fatal.
func (s JobStatus) Known() bool {
	return s >= StatusPending && s <= StatusTimeout
}

func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusGenerated:
		return "generated"
	case StatusAuditing:
		return "auditing"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
