package internal

import (
	"cgmd/internal/controllers"
	"cgmd/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/patient", http.HandlerFunc(apiController.GetPatient))
	routers.Get("/sensor", http.HandlerFunc(apiController.GetSensor))
	routers.Get("/glucose/mgdl", http.HandlerFunc(apiController.GetGlucoseMgDl))
	routers.Get("/glucose/mmol", http.HandlerFunc(apiController.GetGlucoseMmol))
	return routers
}
