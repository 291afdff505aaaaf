package models

// SessionUser, oturum açmış kullanıcının kimliği.
// Token claim'lerinden türetilir ve session context'inde taşınır.
type SessionUser struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// UserSummary, arama sonuçlarında ve profil başlığında gösterilen kullanıcı özeti.
type UserSummary struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profilePictureUrl"`
	FollowersCount    int    `json:"followersCount"`
	FollowingCount    int    `json:"followingCount"`
	IsFollowing       bool   `json:"isFollowing"`
}
