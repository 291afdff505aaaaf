// Package main: Service katmanı başlatma.
//
// ÖNEMLİ sıralama kuralı: ContentService, NotificationService'den ÖNCE oluşturulur.
// İkisi de LIKE / COMMENT'e abonedir; dispatcher kayıt sırasıyla çağırdığı için
// bildirim handler'ı item'ın güncellenmiş halini görür. NotificationService ayrıca
// item sahipliği için ContentService'i okur.
package main

import (
	"github.com/akinalp/memesync/config"
	"github.com/akinalp/memesync/pkg/cache"
	"github.com/akinalp/memesync/services"
	"github.com/akinalp/memesync/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Content      services.ContentService
	Notification services.NotificationService
	Follow       services.FollowService
}

// initServices, store'ları oluşturur ve dispatcher handler'larını kaydeder.
func initServices(
	cfg *config.Config,
	repos *Repositories,
	identity services.Identity,
	rt services.Realtime,
	dispatcher *ws.Dispatcher,
) *Services {
	feedCache := cache.NewFeedCache(cfg.Cache.FeedTTL)

	content := services.NewContentService(repos.Feed, feedCache, identity, rt, dispatcher, services.ContentOptions{
		HomePageSize:     cfg.API.HomePageSize,
		DiscoverPageSize: cfg.API.DiscoverPageSize,
		ProfilePageSize:  cfg.API.ProfilePageSize,
		ProfileTTL:       cfg.Cache.ProfileTTL,
	})

	return &Services{
		Content:      content,
		Notification: services.NewNotificationService(repos.Notification, identity, content, dispatcher),
		Follow:       services.NewFollowService(repos.User, identity, rt, dispatcher),
	}
}

// Close, tüm store'ların dispatcher kayıtlarını kaldırır.
func (s *Services) Close() {
	s.Follow.Close()
	s.Notification.Close()
	s.Content.Close()
}
