package task

import "errors"

// ErrEmptyBundle is returned by UnpackBundle when handed a non-nil bundle
// with zero tasks. The wire protocol distinguishes "disconnect" (nil
// bundle) from "more tasks" (non-nil); a non-nil, empty bundle is neither
// and is rejected rather than guessing a terminal id from an empty slice.
var ErrEmptyBundle = errors.New("task: empty non-nil bundle")
