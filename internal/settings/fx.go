package settings

import (
	"github.com/smallbiznis/frontdesk/internal/settings/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.repository",
	fx.Provide(repository.Provide),
)
