package authgin

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/watercooler-app/watercooler-api/adapters/gin/handlers"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/core"
	"github.com/watercooler-app/watercooler-api/profile"
	"github.com/watercooler-app/watercooler-api/proxy"
)

// APIPrefix is where GinRegisterAPI mounts its routes.
const APIPrefix = "/api/v1"

// DefaultCORSOrigins is used when WithCORS receives no origins.
var DefaultCORSOrigins = []string{"http://localhost:3000"}

// API wires the verifier, profile service and proxy clients into gin routes.
//
//	api := authgin.NewAPI(verifier).
//		WithProfiles(profiles).
//		WithStorage(storage).
//		WithTranscriber(transcriber)
//	api.GinRegisterAPI(r)
type API struct {
	verifier    *core.Verifier
	profiles    *profile.Service
	storage     handlers.Uploader
	transcriber handlers.Transcriber
	rl          ginutil.RateLimiter
	log         logrus.FieldLogger
	debug       bool
	origins     []string
}

func NewAPI(v *core.Verifier) *API {
	return &API{
		verifier:    v,
		profiles:    profile.NewService(nil, nil),
		storage:     proxy.NewStorageClient(proxy.StorageConfig{}),
		transcriber: proxy.NewTranscriptionClient(proxy.TranscriptionConfig{}),
		log:         logrus.StandardLogger(),
		origins:     DefaultCORSOrigins,
	}
}

func (a *API) WithProfiles(svc *profile.Service) *API {
	if svc != nil {
		a.profiles = svc
	}
	return a
}

func (a *API) WithStorage(up handlers.Uploader) *API {
	if up != nil {
		a.storage = up
	}
	return a
}

func (a *API) WithTranscriber(tr handlers.Transcriber) *API {
	if tr != nil {
		a.transcriber = tr
	}
	return a
}

func (a *API) WithRateLimiter(rl ginutil.RateLimiter) *API { a.rl = rl; return a }
func (a *API) WithDebugRoutes(enabled bool) *API          { a.debug = enabled; return a }

func (a *API) WithLogger(l logrus.FieldLogger) *API {
	if l != nil {
		a.log = l
	}
	return a
}

// WithCORS sets the allowed browser origins. "*" allows any origin.
func (a *API) WithCORS(origins ...string) *API {
	if len(origins) > 0 {
		a.origins = origins
	}
	return a
}

// GinRegisterAPI mounts every route under APIPrefix.
func (a *API) GinRegisterAPI(r gin.IRouter) {
	auth := AuthRequired(a.verifier)
	subject := SubjectRequired()

	g := r.Group(APIPrefix)
	g.GET("/health", handlers.HandleHealthGET())
	g.GET("/ready", handlers.HandleReadyGET())
	g.GET("/db/ready", handlers.HandleDBReadyGET(a.profiles))
	g.GET("/me", auth, handlers.HandleMeGET())
	if a.debug {
		g.GET("/debug/kid", handlers.HandleDebugKidGET(a.verifier))
	}

	g.GET("/profile/me", auth, subject, handlers.HandleProfileMeGET(a.profiles))
	g.POST("/profile", auth, subject, handlers.HandleProfilePOST(a.profiles, a.rl))
	g.PATCH("/profile", auth, subject, handlers.HandleProfilePATCH(a.profiles, a.rl))

	g.POST("/upload/avatar", auth, handlers.HandleUploadAvatarPOST(a.storage, a.rl))
	g.POST("/transcribe", auth, handlers.HandleTranscribePOST(a.transcriber, a.rl))
}

// Engine builds a gin engine with recovery, request logging, CORS and the API routes.
func (a *API) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(a.log), a.corsMiddleware())
	r.NoRoute(func(c *gin.Context) {
		ginutil.Detail(c, http.StatusNotFound, "Not Found")
	})
	a.GinRegisterAPI(r)
	return r
}

func (a *API) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Accept", "X-Requested-With", HeaderRequestID},
		ExposeHeaders:    []string{HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(a.origins) == 1 && a.origins[0] == "*" {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = a.origins
	}
	return cors.New(cfg)
}
