package sqlstore

import (
	"github.com/surveyflow/engine/internal/answerstore"
	"github.com/surveyflow/engine/internal/dependentstore"
)

var (
	_ answerstore.Store    = (*Store)(nil)
	_ dependentstore.Store = (*Store)(nil)
)
