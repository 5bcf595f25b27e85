package transport

import (
	"context"
	"fmt"
	"log"
	"time"
)

// LoggingCommandMiddleware логирует выполнение команд
func LoggingCommandMiddleware() CommandInterceptor {
	return CommandInterceptorFunc(func(ctx context.Context, cmd Command, next func(ctx context.Context, cmd Command) error) error {
		start := time.Now()
		err := next(ctx, cmd)

		duration := time.Since(start)
		if err != nil {
			log.Printf("Command %s failed after %v: %v", cmd.CommandName(), duration, err)
		} else {
			log.Printf("Command %s completed in %v", cmd.CommandName(), duration)
		}
		return err
	})
}

// LoggingQueryMiddleware логирует выполнение запросов
func LoggingQueryMiddleware() QueryInterceptor {
	return QueryInterceptorFunc(func(ctx context.Context, q Query, next func(ctx context.Context, q Query) (interface{}, error)) (interface{}, error) {
		start := time.Now()
		result, err := next(ctx, q)

		duration := time.Since(start)
		if err != nil {
			log.Printf("Query %s failed after %v: %v", q.QueryName(), duration, err)
		} else {
			log.Printf("Query %s completed in %v", q.QueryName(), duration)
		}
		return result, err
	})
}

// RecoveryCommandMiddleware восстанавливает панику в обработчиках команд
func RecoveryCommandMiddleware() CommandInterceptor {
	return CommandInterceptorFunc(func(ctx context.Context, cmd Command, next func(ctx context.Context, cmd Command) error) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic recovered in command %s: %v", cmd.CommandName(), r)
			}
		}()
		return next(ctx, cmd)
	})
}

// RecoveryQueryMiddleware восстанавливает панику в обработчиках запросов
func RecoveryQueryMiddleware() QueryInterceptor {
	return QueryInterceptorFunc(func(ctx context.Context, q Query, next func(ctx context.Context, q Query) (interface{}, error)) (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic recovered in query %s: %v", q.QueryName(), r)
			}
		}()
		return next(ctx, q)
	})
}

// TimeoutCommandMiddleware добавляет timeout к выполнению команды
func TimeoutCommandMiddleware(timeout time.Duration) CommandInterceptor {
	return CommandInterceptorFunc(func(ctx context.Context, cmd Command, next func(ctx context.Context, cmd Command) error) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return next(ctx, cmd)
	})
}

// TimeoutQueryMiddleware добавляет timeout к выполнению запроса
func TimeoutQueryMiddleware(timeout time.Duration) QueryInterceptor {
	return QueryInterceptorFunc(func(ctx context.Context, q Query, next func(ctx context.Context, q Query) (interface{}, error)) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return next(ctx, q)
	})
}
