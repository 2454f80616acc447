// @title           RecallAI Study API
// @version         1.0
// @description     Upload lecture material, then ask for summaries, quizzes, answer checks and revealed answers grounded in it.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package utils

//run redis
//docker run -p 6379:6379 -d redis

//run qdrant, only needed with RECALL_INDEX_BACKEND=qdrant
//docker run -p 6333:6333 -p 6334:6334 -v recallVectors:/qdrant/storage qdrant/qdrant

//swagger init
//swag init -g internal/adapter/utils/docs_info.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
