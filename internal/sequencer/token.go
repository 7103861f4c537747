package sequencer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenActionAccept  = "accept"
	TokenActionDecline = "decline"
)

// OfferClaims 邀约响应链接里携带的信息。
// 链接直接发到工人邮箱，凭签名即可响应，不需要登录态。
type OfferClaims struct {
	WorkerID int64  `json:"worker_id"`
	Action   string `json:"action"`
	jwt.RegisteredClaims
}

// SignOfferToken 为某个邀约签发响应令牌，有效期与响应窗口一致
func SignOfferToken(secret string, assignmentID int64, workerID int64, action string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &OfferClaims{
		WorkerID: workerID,
		Action:   action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(assignmentID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseOfferToken 校验令牌签名与有效期并还原邀约信息
func ParseOfferToken(secret string, tokenString string) (assignmentID int64, claims *OfferClaims, err error) {
	claims = &OfferClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, nil, err
	}
	if !token.Valid {
		return 0, nil, fmt.Errorf("令牌无效")
	}

	assignmentID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("令牌主体不是合法的邀约 ID: %w", err)
	}

	return assignmentID, claims, nil
}
