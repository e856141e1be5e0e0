package main

import (
	"roomtrack/internal/attendance/events"
	"roomtrack/internal/attendance/handler"
	"roomtrack/internal/attendance/repository"
	"roomtrack/internal/attendance/service"
	"roomtrack/internal/attendance/validator"
	"roomtrack/pkg/app"
	"roomtrack/pkg/client"
	"roomtrack/pkg/config"
	"roomtrack/pkg/idempotency"
	"roomtrack/pkg/kafka"
	kafka_config "roomtrack/pkg/kafka/config"
	kafka_middleware "roomtrack/pkg/kafka/middleware"
	"roomtrack/pkg/lock"
)

const ServiceName = "attendance"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Attendance service")

	publisher, producer := initPublisher(cfg)
	defer producer.Close()
	defer publisher.Close()

	attendanceService := initServices(cfg, publisher)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg,
		handler.NewAttendanceHandler(attendanceService, validator.NewAttendanceValidator(cfg.Log), cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Client.Redis, cfg.Log),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventTopic, cfg.EventTopic+".dlq")
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	publisher := events.NewKafkaPublisher(producer, cfg.EventQueueSize, cfg.Log)
	cfg.Log.Info("Event publisher initialized", "topic", cfg.EventTopic, "queue_size", cfg.EventQueueSize)

	return publisher, producer
}

func initServices(cfg *config.Config, publisher events.Publisher) service.AttendanceService {
	attendanceRepo := repository.NewMongoAttendanceRepository(cfg)

	personDirectory := client.NewPersonDirectoryClient(cfg.PersonDirectoryURL)
	roomDirectory := client.NewRoomDirectoryClient(cfg.RoomDirectoryURL)

	locker := lock.NewRedisLocker(cfg.Client.Redis)
	idemStore := idempotency.NewRedisStore(cfg.Client.Redis)

	attendanceService := service.NewAttendanceService(
		cfg,
		attendanceRepo,
		personDirectory,
		roomDirectory,
		locker,
		idemStore,
		publisher,
	)

	cfg.Log.Info("Attendance service initialized", "database", cfg.MongoDatabaseName)
	return attendanceService
}
