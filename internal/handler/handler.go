package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/queue"
	"github.com/linggong-dev/shift-dispatch/backend/internal/repository"
	"github.com/linggong-dev/shift-dispatch/backend/internal/sequencer"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	publisher  *queue.Publisher
	sequencer  *sequencer.Sequencer
	shiftLock  *sequencer.ShiftLock

	Mux *chi.Mux
}

func NewHandler(
	cfg *config.Config,
	repo *repository.Repository,
	publisher *queue.Publisher,
	seq *sequencer.Sequencer,
	shiftLock *sequencer.ShiftLock,
) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		publisher:  publisher,
		sequencer:  seq,
		shiftLock:  shiftLock,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 用人方及拉黑关系
	h.Mux.Route("/organizations", func(r chi.Router) {
		r.Post("/", h.CreateOrganization)
		r.Get("/", h.GetAllOrganizations)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.organizationInfo)
			r.Get("/", h.GetOrganization)
			r.Route("/blocks/{workerID}", func(r chi.Router) {
				r.Put("/", h.UpsertBlock)
				r.Delete("/", h.DeleteBlock)
			})
		})
	})

	// 工人档案
	h.Mux.Route("/workers", func(r chi.Router) {
		r.Post("/", h.CreateWorker)
		r.Get("/", h.GetAllWorkers)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.workerInfo)
			r.Get("/", h.GetWorker)
			r.Patch("/", h.UpdateWorker)
			r.Put("/availability", h.ReplaceAvailability)
		})
	})

	// 班次与招募
	h.Mux.Route("/shifts", func(r chi.Router) {
		r.Post("/", h.CreateShift)
		r.Get("/", h.GetAllShifts)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.shiftInfo)
			r.Get("/", h.GetShift)
			r.Post("/publish", h.PublishShift)
			r.Post("/recruiting", h.StartRecruiting)
			r.Post("/cancel", h.CancelShift)
			r.Get("/assignments", h.GetShiftAssignments)
			r.Get("/activities", h.GetShiftActivities)
		})
	})

	// Assignment 状态流转
	h.Mux.Route("/assignments/{id}", func(r chi.Router) {
		r.Use(h.assignmentInfo)
		r.Get("/", h.GetAssignment)
		r.Post("/accept", h.AcceptOffer)
		r.Post("/decline", h.DeclineOffer)
		r.Post("/confirm", h.ConfirmAssignment)
		r.Post("/check-in", h.CheckInAssignment)
		r.Post("/check-out", h.CheckOutAssignment)
		r.Post("/approve-timesheet", h.ApproveTimesheet)
		r.Post("/complete", h.CompleteAssignment)
		r.Post("/no-show", h.MarkNoShow)
		r.Post("/cancel", h.CancelAssignment)
	})

	// 邮件里的响应链接
	h.Mux.Get("/offers/respond", h.RespondOffer)
}
