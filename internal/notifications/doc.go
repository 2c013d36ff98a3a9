// Package notifications delivers user-facing push messages via ntfy.
//
// Only download completions and scan-level failures notify; everything else
// is log-only to avoid notification spam. An unconfigured topic yields a
// noop service so call sites never branch.
package notifications
