package main

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
	"github.com/dumeirei/hotel-pms-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/hotel-pms-backend/internal/common/middleware"
	adminHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/admin"
	authHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/auth"
	hotelHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/hotel"
	paymentHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/payment"
	uploadHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/upload"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/scheduler"
	"github.com/dumeirei/hotel-pms-backend/internal/service/audit"
	authService "github.com/dumeirei/hotel-pms-backend/internal/service/auth"
	"github.com/dumeirei/hotel-pms-backend/internal/service/availability"
	"github.com/dumeirei/hotel-pms-backend/internal/service/external"
	hotelService "github.com/dumeirei/hotel-pms-backend/internal/service/hotel"
	paymentService "github.com/dumeirei/hotel-pms-backend/internal/service/payment"
	"github.com/dumeirei/hotel-pms-backend/internal/service/statistics"
	uploadService "github.com/dumeirei/hotel-pms-backend/internal/service/upload"
	"github.com/dumeirei/hotel-pms-backend/pkg/mqtt"
	"github.com/dumeirei/hotel-pms-backend/pkg/oss"
	"github.com/dumeirei/hotel-pms-backend/pkg/sms"
	"github.com/dumeirei/hotel-pms-backend/pkg/wechatpay"
)

// application 组装好的服务与处理器
type application struct {
	jwtManager *jwt.Manager
	cache      *cache.Cache
	metrics    *metrics.Metrics
	opLogger   *commonMiddleware.OperationLogger
	mqttClient *mqtt.Client
	scheduler  *scheduler.Scheduler

	authH        *authHandler.Handler
	adminAuthH   *adminHandler.AuthHandler
	roomH        *hotelHandler.RoomHandler
	guestH       *hotelHandler.GuestHandler
	reservationH *hotelHandler.ReservationHandler
	bookingH     *hotelHandler.BookingHandler
	paymentH     *paymentHandler.Handler
	statisticsH  *adminHandler.StatisticsHandler
	externalH    *adminHandler.ExternalHandler
	opLogH       *adminHandler.OperationLogHandler
	uploadH      *uploadHandler.Handler
}

// newApplication 按配置初始化仓储、外部客户端、服务和处理器
func newApplication(cfg *config.Config, log *zap.Logger, db *gorm.DB, redisClient *redis.Client) *application {
	app := &application{
		jwtManager: jwt.NewManager(jwt.FromAppConfig(&cfg.JWT)),
		cache:      cache.New(redisClient),
	}
	if cfg.Metrics.Enabled {
		app.metrics = metrics.New(cfg.Metrics.Namespace, nil)
	}

	// 仓储
	roomRepo := repository.NewRoomRepository(db)
	guestRepo := repository.NewGuestRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	opLogRepo := repository.NewOperationLogRepository(db)

	app.opLogger = commonMiddleware.NewOperationLogger(opLogRepo)
	sink := app.auditSink(cfg, log, guestRepo, opLogRepo)

	// 核心服务
	checker := availability.NewChecker(reservationRepo, roomRepo)
	ledger := paymentService.NewLedger(db, txnRepo, reservationRepo, roomRepo, checker, sink, app.metrics, paymentService.LedgerConfig{
		MaxRetries: cfg.Hotel.MaxRetries,
	})
	reservationSvc := hotelService.NewReservationService(db, reservationRepo, roomRepo, guestRepo, checker, ledger, sink, app.metrics, hotelService.EngineConfig{
		MaxRetries: cfg.Hotel.MaxRetries,
		Refund: hotelService.RefundPolicy{
			FreeCancelDays: cfg.Hotel.FreeCancelDays,
			PenaltyRate:    cfg.Hotel.LateCancelPenaltyRate,
		},
	})
	roomSvc := hotelService.NewRoomService(roomRepo, reservationRepo, checker)

	publicSecurity := external.NewPublicSecurityService(nil)
	var verifier hotelService.IDVerifier
	if cfg.Hotel.VerifyIDCard {
		verifier = publicSecurity
	}
	guestSvc := hotelService.NewGuestService(guestRepo, reservationRepo, verifier)

	authSvc := authService.NewAuthService(staffRepo, guestRepo, crypto.NewPasswordHasher(cfg.Crypto.BcryptCost), app.jwtManager, app.cache)
	statisticsSvc := statistics.NewStatisticsService(reservationRepo, roomRepo, app.cache, app.metrics, statistics.Config{
		CacheTTL: cfg.Hotel.StatisticsCacheTTL,
	})
	uploadSvc := uploadService.NewUploadService(newUploader(cfg, log), roomRepo)

	var gateway *external.PaymentGateway
	if client, err := wechatpay.NewClient(wechatPayConfig(&cfg.WeChatPay)); err != nil {
		log.Warn("WeChat Pay disabled", zap.Error(err))
	} else {
		gateway = external.NewPaymentGateway(client, ledger)
	}

	// 定时任务
	app.scheduler = scheduler.NewScheduler(scheduler.WithLocker(app.cache))
	tasks := scheduler.NewTaskHandler(reservationSvc).
		WithLogRetention(opLogRepo, time.Duration(cfg.Hotel.LogRetentionDays)*24*time.Hour)
	app.scheduler.AddTask(scheduler.TaskReservationExpiry, cfg.Hotel.SweepInterval, cfg.Hotel.SweepTimeout, tasks.ExpireReservations)
	app.scheduler.AddTask(scheduler.TaskOperationLogPurge, 24*time.Hour, cfg.Hotel.SweepTimeout, tasks.PurgeOperationLogs)

	// 处理器
	app.authH = authHandler.NewHandler(authSvc, guestSvc)
	app.adminAuthH = adminHandler.NewAuthHandler(authSvc)
	app.roomH = hotelHandler.NewRoomHandler(roomSvc)
	app.guestH = hotelHandler.NewGuestHandler(guestSvc)
	app.reservationH = hotelHandler.NewReservationHandler(reservationSvc)
	app.bookingH = hotelHandler.NewBookingHandler(reservationSvc, roomSvc, ledger, gateway)
	app.paymentH = paymentHandler.NewHandler(ledger, gateway)
	app.statisticsH = adminHandler.NewStatisticsHandler(statisticsSvc)
	app.externalH = adminHandler.NewExternalHandler(external.NewOTAService(nil), publicSecurity, reservationSvc, guestSvc)
	app.opLogH = adminHandler.NewOperationLogHandler(opLogRepo)
	app.uploadH = uploadHandler.NewHandler(uploadSvc)
	return app
}

// auditSink 审计日志始终落库，MQTT 和短信按配置开启
func (app *application) auditSink(cfg *config.Config, log *zap.Logger, guestRepo *repository.GuestRepository, opLogRepo *repository.OperationLogRepository) audit.Sink {
	sinks := audit.MultiSink{audit.NewOperationLogSink(opLogRepo)}

	if cfg.Hotel.PublishEvents && cfg.MQTT.Enabled {
		client := mqtt.NewClient(&mqtt.Config{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientIDPrefix + time.Now().Format("20060102150405"),
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			KeepAlive:      cfg.MQTT.KeepAlive,
			AutoReconnect:  cfg.MQTT.AutoReconnect,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			QoS:            cfg.MQTT.QoS,
		}, log)
		if err := client.Connect(); err != nil {
			log.Warn("MQTT connect failed, events will not be published", zap.Error(err))
		} else {
			app.mqttClient = client
			sinks = append(sinks, audit.NewMQTTSink(client, cfg.MQTT.TopicPrefix, app.metrics))
		}
	}

	if cfg.Hotel.NotifySMS {
		sinks = append(sinks, audit.NewSMSNotifier(newSMSSender(cfg, log), guestRepo, audit.SMSTemplates{
			Confirm:  cfg.SMS.ConfirmTemplateID,
			Cancel:   cfg.SMS.CancelTemplateID,
			Checkout: cfg.SMS.CheckoutTemplateID,
		}, app.metrics))
	}
	return sinks
}

func newSMSSender(cfg *config.Config, log *zap.Logger) sms.Sender {
	if cfg.SMS.Provider != "aliyun" {
		return sms.NewMockSender()
	}
	sender, err := sms.NewAliyunSender(&sms.AliyunConfig{
		AccessKeyID:     cfg.SMS.AccessKeyID,
		AccessKeySecret: cfg.SMS.AccessKeySecret,
		SignName:        cfg.SMS.SignName,
	})
	if err != nil {
		log.Warn("aliyun SMS unavailable, falling back to mock", zap.Error(err))
		return sms.NewMockSender()
	}
	return sender
}

func newUploader(cfg *config.Config, log *zap.Logger) oss.Uploader {
	if cfg.OSS.Provider != "aliyun" {
		return oss.NewMockUploader()
	}
	uploader, err := oss.NewAliyunUploader(&oss.AliyunConfig{
		Endpoint:        cfg.OSS.Endpoint,
		AccessKeyID:     cfg.OSS.AccessKeyID,
		AccessKeySecret: cfg.OSS.AccessKeySecret,
		BucketName:      cfg.OSS.Bucket,
		Domain:          cfg.OSS.CustomDomain,
		BasePath:        cfg.OSS.UploadDir,
	})
	if err != nil {
		log.Warn("aliyun OSS unavailable, falling back to mock", zap.Error(err))
		return oss.NewMockUploader()
	}
	return uploader
}

func wechatPayConfig(cfg *config.WeChatPayConfig) *wechatpay.Config {
	return &wechatpay.Config{
		AppID:          cfg.AppID,
		MchID:          cfg.MchID,
		APIv3Key:       cfg.APIv3Key,
		SerialNo:       cfg.SerialNo,
		PrivateKeyPath: cfg.PrivateKeyPath,
		NotifyURL:      cfg.NotifyURL,
		IsSandbox:      cfg.IsSandbox,
	}
}

// close 释放外部连接
func (app *application) close() {
	app.scheduler.Stop()
	if app.mqttClient != nil {
		app.mqttClient.Disconnect()
	}
}
