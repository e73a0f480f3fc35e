package logger

import "go.uber.org/zap"

// S retorna el SugaredLogger del singleton, para herramientas CLI
// donde el formato printf-style es más cómodo.
//
//	logger.S().Infof("applied %d migrations", n)
func S() *zap.SugaredLogger {
	return L().Sugar()
}
