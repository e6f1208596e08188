package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const playerIDKey = "player_id"

// bearerAuth проверяет токен входа в заголовке Authorization
func (rs *RestServer) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Message: "Отсутствует токен авторизации",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Message: "Неверный формат токена",
			})
			return
		}

		claims, err := rs.tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Message: "Недействительный токен",
			})
			return
		}

		c.Set(playerIDKey, claims.PlayerID)
		c.Next()
	}
}
