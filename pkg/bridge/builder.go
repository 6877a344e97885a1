package bridge

import "time"

type PollerBuilder struct {
	source   OrderSource
	notifier *Notifier
	archiver Archiver
	filter   Filter
	interval time.Duration
	logger   Logger
}

func NewPollerBuilder() *PollerBuilder {
	return &PollerBuilder{
		interval: defaultPollInterval,
	}
}

func (b *PollerBuilder) WithSource(source OrderSource) *PollerBuilder {
	b.source = source
	return b
}

func (b *PollerBuilder) WithNotifier(n *Notifier) *PollerBuilder {
	b.notifier = n
	return b
}

func (b *PollerBuilder) WithArchiver(a Archiver) *PollerBuilder {
	b.archiver = a
	return b
}

func (b *PollerBuilder) WithFilter(f Filter) *PollerBuilder {
	b.filter = f
	return b
}

func (b *PollerBuilder) WithInterval(d time.Duration) *PollerBuilder {
	if d > 0 {
		b.interval = d
	}
	return b
}

func (b *PollerBuilder) WithLogger(logger Logger) *PollerBuilder {
	b.logger = logger
	return b
}

func (b *PollerBuilder) Build() (*Poller, error) {
	if b.source == nil {
		return nil, &ConfigError{msg: "order source is required"}
	}
	if err := b.filter.Validate(); err != nil {
		return nil, err
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = NewNotifier(nil)
	}
	logger := b.logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{
		source:   b.source,
		notifier: notifier,
		archiver: b.archiver,
		filter:   b.filter,
		interval: b.interval,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}, nil
}

type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return e.msg
}
