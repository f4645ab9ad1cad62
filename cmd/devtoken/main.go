package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ignatzorin/dispute-backend/internal/config"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/service"
)

// Выпускает access токен для локальной разработки. Аутентификацией занимается отдельный сервис.
func main() {
	userID := flag.Int64("user", 0, "идентификатор пользователя")
	role := flag.String("role", models.AccountRoleUser, "роль: user, arbitrator или admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "срок действия токена")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("devtoken: ошибка загрузки конфигурации: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("devtoken: недоступно в production")
	}
	if *userID <= 0 {
		log.Fatal("devtoken: -user обязателен")
	}
	if _, ok := models.ValidAccountRoles[*role]; !ok {
		log.Fatalf("devtoken: неизвестная роль %q", *role)
	}

	token, err := service.NewTokenManager(cfg.JWTSecret, *ttl).Issue(*userID, *role)
	if err != nil {
		log.Fatalf("devtoken: %v", err)
	}
	fmt.Println(token)
}
