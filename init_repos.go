// Package main: Repository katmanı başlatma.
//
// initRepositories, REST collaborator'a giden tüm repository'leri oluşturur.
// Hepsi aynı APIClient'ı (timeout, bearer token) paylaşır.
package main

import (
	"github.com/akinalp/memesync/config"
	"github.com/akinalp/memesync/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	Feed         repository.FeedRepository
	Notification repository.NotificationRepository
	User         repository.UserRepository
}

// initRepositories, APIClient'ı kurar ve repository'leri ona bağlar.
// tokens her istekte okunur; login/logout sonrası client yeniden kurulmaz.
func initRepositories(cfg config.APIConfig, tokens repository.TokenSource) *Repositories {
	api := repository.NewAPIClient(cfg.URL, cfg.Timeout, tokens)

	return &Repositories{
		Feed:         repository.NewHTTPFeedRepo(api),
		Notification: repository.NewHTTPNotificationRepo(api),
		User:         repository.NewHTTPUserRepo(api),
	}
}
