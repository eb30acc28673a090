package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"habitquest/api/internal/app"
	"habitquest/api/internal/fn"
)

func main() {
	lambda.Start(fn.Lambda(app.OpDelete))
}
