package config

type WorkerKeyStruct struct {
	LeaderboardRefreshQueue string
}

var WorkerKey = &WorkerKeyStruct{
	LeaderboardRefreshQueue: "leaderboard_refresh_queue",
}
