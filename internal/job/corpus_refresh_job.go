package job

import "context"

type corpusRefresher interface {
	Refresh(ctx context.Context) error
}

// CorpusRefreshJob reloads the cached corpus from its source. The previous
// corpus keeps serving when the reload fails.
type CorpusRefreshJob struct {
	loader corpusRefresher
}

func NewCorpusRefreshJob(loader corpusRefresher) *CorpusRefreshJob {
	return &CorpusRefreshJob{loader: loader}
}

func (j *CorpusRefreshJob) Name() string {
	return "corpus_refresh"
}

func (j *CorpusRefreshJob) Run(ctx context.Context) error {
	return j.loader.Refresh(ctx)
}
