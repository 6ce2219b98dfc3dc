// marketcli 市场店铺命令行客户端
package main

func main() {
	Execute()
}
